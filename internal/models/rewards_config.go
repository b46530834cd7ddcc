package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type RewardsConfig struct {
	bun.BaseModel        `bun:"table:rewards_config"`
	SellerID             string          `bun:"seller_id,pk" json:"seller_id"`
	Active               bool            `bun:"active,notnull" json:"active"`
	EarnRate             decimal.Decimal `bun:"earn_rate,type:numeric(12,6),notnull" json:"earn_rate"`
	MinimumPurchaseCents int64           `bun:"minimum_purchase_cents,notnull" json:"minimum_purchase_cents"`
	RedemptionRateCents  int64           `bun:"redemption_rate_cents,notnull" json:"redemption_rate_cents"`
	UpdatedAt            time.Time       `bun:"updated_at,notnull" json:"updated_at"`
}

// RewardsConfigPatch carries a partial update; nil fields keep the stored value.
type RewardsConfigPatch struct {
	Active               *bool            `json:"active"`
	EarnRate             *decimal.Decimal `json:"earn_rate"`
	MinimumPurchaseCents *int64           `json:"minimum_purchase_cents"`
	RedemptionRateCents  *int64           `json:"redemption_rate_cents"`
}

// RewardsProgram is a seller's config and tiers read at one snapshot.
type RewardsProgram struct {
	Config *RewardsConfig `json:"config"`
	Tiers  []RewardTier   `json:"tiers"`
}
