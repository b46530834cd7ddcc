package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	LEDGER_KIND_EARNED = "earned"
	LEDGER_KIND_SPENT  = "spent"
)

type LedgerEntry struct {
	bun.BaseModel `bun:"table:points_ledger"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	SellerID      string    `bun:"seller_id,notnull" json:"seller_id"`
	OrderID       string    `bun:"order_id,notnull" json:"order_id"`
	Kind          string    `bun:"kind,notnull" json:"kind"`
	Points        int64     `bun:"points,notnull" json:"points"`
	Description   string    `bun:"description" json:"description"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// SignedPoints is the entry's contribution to the balance.
func (entry *LedgerEntry) SignedPoints() int64 {
	if entry.Kind == LEDGER_KIND_SPENT {
		return -entry.Points
	}
	return entry.Points
}

type PointsBalance struct {
	bun.BaseModel `bun:"table:points_balance"`
	UserID        string    `bun:"user_id,pk" json:"user_id"`
	SellerID      string    `bun:"seller_id,pk" json:"seller_id"`
	Balance       int64     `bun:"balance,notnull" json:"balance"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

type LedgerSum struct {
	UserID   string `bun:"user_id" json:"user_id"`
	SellerID string `bun:"seller_id" json:"seller_id"`
	Earned   int64  `bun:"earned" json:"earned"`
	Spent    int64  `bun:"spent" json:"spent"`
}

type LedgerPage struct {
	Entries    []LedgerEntry `json:"entries"`
	NextCursor *int64        `json:"next_cursor"`
}

type BalanceDrift struct {
	UserID   string `json:"user_id"`
	SellerID string `json:"seller_id"`
	Cached   int64  `json:"cached"`
	Derived  int64  `json:"derived"`
}
