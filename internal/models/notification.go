package models

import "time"

const (
	EVENT_POINTS_EARNED   = "points_earned"
	EVENT_POINTS_REDEEMED = "points_redeemed"
)

type NotificationEvent struct {
	ID        string    `json:"id" msgpack:"id"`
	Type      string    `json:"type" msgpack:"type"`
	UserID    string    `json:"user_id" msgpack:"user_id"`
	SellerID  string    `json:"seller_id" msgpack:"seller_id"`
	OrderID   string    `json:"order_id" msgpack:"order_id"`
	Points    int64     `json:"points" msgpack:"points"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
	Attempts  int       `json:"-" msgpack:"attempts"`
}
