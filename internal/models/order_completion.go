package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderCompletion struct {
	bun.BaseModel   `bun:"table:order_completions"`
	OrderID         string     `bun:"order_id,pk" json:"order_id"`
	UserID          string     `bun:"user_id,notnull" json:"user_id"`
	SellerID        string     `bun:"seller_id,notnull" json:"seller_id"`
	OrderTotalCents int64      `bun:"order_total_cents,notnull" json:"order_total_cents"`
	Attempts        int        `bun:"attempts,notnull" json:"attempts"`
	LastError       string     `bun:"last_error" json:"last_error"`
	ProcessedAt     *time.Time `bun:"processed_at" json:"processed_at"`
	CreatedAt       time.Time  `bun:"created_at,notnull" json:"created_at"`
}
