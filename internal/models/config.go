package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Config holds operator settings such as the redemption policy and cron schedules.
type Config struct {
	bun.BaseModel `bun:"table:config"`
	Key           string    `bun:"key,pk" json:"key"`
	Value         string    `bun:"value,notnull" json:"value"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}
