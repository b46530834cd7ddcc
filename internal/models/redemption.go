package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	REDEMPTION_STATUS_APPLIED  = "applied"
	REDEMPTION_STATUS_REJECTED = "rejected"
)

type Redemption struct {
	bun.BaseModel `bun:"table:redemptions"`
	OrderID         string    `bun:"order_id,pk" json:"order_id"`
	UserID          string    `bun:"user_id,notnull" json:"user_id"`
	SellerID        string    `bun:"seller_id,notnull" json:"seller_id"`
	PointsUsed      int64     `bun:"points_used,notnull" json:"points_used"`
	OrderTotalCents int64     `bun:"order_total_cents,notnull" json:"order_total_cents"`
	DiscountCents   int64     `bun:"discount_cents,notnull" json:"discount_cents"`
	Status          string    `bun:"status,notnull" json:"status"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"created_at"`
}
