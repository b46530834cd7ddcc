package models

import (
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type RewardTier struct {
	bun.BaseModel        `bun:"table:reward_tiers"`
	ID                   int64           `bun:"id,pk,autoincrement" json:"id"`
	SellerID             string          `bun:"seller_id,notnull" json:"seller_id"`
	Name                 string          `bun:"name,notnull" json:"name"`
	MinimumPurchaseCents int64           `bun:"minimum_purchase_cents,notnull" json:"minimum_purchase_cents"`
	Multiplier           decimal.Decimal `bun:"multiplier,type:numeric(8,4),notnull" json:"multiplier"`
	Active               bool            `bun:"active,notnull" json:"active"`
}
