package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDuplicateCredit     = errors.New("points already credited for order")
	ErrDuplicateDebit      = errors.New("points already debited for order")
	ErrInsufficientBalance = errors.New("insufficient points balance")
	ErrInvalidPoints       = errors.New("invalid points amount")
	ErrInvalidConfig       = errors.New("invalid rewards config")
	ErrInvalidTierConfig   = errors.New("invalid reward tier config")
	ErrInvalidOrder        = errors.New("invalid order")
	ErrInvalidRedemption   = errors.New("invalid redemption")
	ErrOverRedemption      = errors.New("redemption exceeds order total")
	ErrPointsLocked        = errors.New("points balance locked")
)

const (
	CONFIG_DEFAULT_REDEMPTION_RATE_CENTS = "DEFAULT_REDEMPTION_RATE_CENTS"
	CONFIG_REDEMPTION_POLICY             = "REDEMPTION_POLICY"
	CONFIG_CRONJOB_TIME_OUTBOX           = "CRONJOB_TIME_OUTBOX"
	CONFIG_CRONJOB_TIME_NOTIFICATION     = "CRONJOB_TIME_NOTIFICATION"
	CONFIG_CRONJOB_TIME_RECONCILE        = "CRONJOB_TIME_RECONCILE"

	REDEMPTION_POLICY_CLAMP  = "clamp"
	REDEMPTION_POLICY_REJECT = "reject"

	SKIP_REASON_CONFIG_INACTIVE        = "config_inactive"
	SKIP_REASON_BELOW_MINIMUM_PURCHASE = "below_minimum_purchase"
	SKIP_REASON_ZERO_POINTS            = "zero_points"

	DEFAULT_REDEMPTION_RATE_CENTS = 35
	DEFAULT_HISTORY_LIMIT         = 20
	MAX_HISTORY_LIMIT             = 100
	OUTBOX_BATCH_SIZE             = 100
	OUTBOX_MAX_ATTEMPTS           = 10
	NOTIFICATION_BATCH_SIZE       = 500
	NOTIFICATION_MAX_ATTEMPTS     = 5
	RECONCILE_BATCH_SIZE          = 500

	DEFAULT_CRONJOB_TIME_OUTBOX       = "@every 10s"
	DEFAULT_CRONJOB_TIME_NOTIFICATION = "@every 5s"
	DEFAULT_CRONJOB_TIME_RECONCILE    = "@daily"

	REDEEM_RATE_LIMIT_PER_MINUTE = 30

	// column types of rewards_config.earn_rate and reward_tiers.multiplier
	EARN_RATE_PRECISION  int32 = 12
	EARN_RATE_SCALE      int32 = 6
	MULTIPLIER_PRECISION int32 = 8
	MULTIPLIER_SCALE     int32 = 4

	LOCK_TTL_POINTS = 10 * time.Second

	CACHE_TTL_5_SECONDS = 5 * time.Second
	CACHE_TTL_1_MIN     = 1 * time.Minute
	CACHE_TTL_5_MINS    = 5 * time.Minute
)

func LockKeyUserPoints(userID string, sellerID string) string {
	return fmt.Sprintf("lock:points:%s:%s", userID, sellerID)
}

func LockKeyOrderOutbox() string {
	return "lock:order-outbox"
}

func LockKeyNotificationDispatch() string {
	return "lock:notification-dispatch"
}

func LockKeyReconcile() string {
	return "lock:reconcile"
}

// db
func DBKeyConfig(key string) string {
	return fmt.Sprintf("config:%s", key)
}

func DBKeyRewardsProgram(sellerID string) string {
	return fmt.Sprintf("rewards_program:%s", sellerID)
}

func LimitKeyUserRedeem(userID string) string {
	return fmt.Sprintf("limit:redeem:%s", userID)
}
