package interfaces

import (
	"context"
	"errors"

	"rewards/internal/models"

	"github.com/go-redis/redis_rate/v10"
)

// Limiter returns limiter.ErrRateLimited once key exceeds limit.
type Limiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) error
}

// ErrNotificationRejected is wrapped by sinks when the receiver refuses an event outright.
var ErrNotificationRejected = errors.New("notification rejected by sink")

// NotificationSink receives ledger events for user-facing notifications.
type NotificationSink interface {
	Send(ctx context.Context, event *models.NotificationEvent) error
}
