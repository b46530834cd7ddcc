package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"rewards/internal/datastore/redis_store"
	"rewards/internal/interfaces"
	"rewards/internal/models"
	"rewards/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
)

// ServiceNotification queues ledger events after commit and relays them to the sink.
// Queue and sink failures never reach ledger callers.
type ServiceNotification struct {
	container *do.Injector
	redisDB   redis.UniversalClient
	sink      interfaces.NotificationSink
	metrics   *metrics.LedgerMetrics
}

func NewServiceNotification(container *do.Injector) (*ServiceNotification, error) {
	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-queue")
	if err != nil {
		return nil, err
	}

	sink, err := do.Invoke[interfaces.NotificationSink](container)
	if err != nil {
		return nil, err
	}

	return &ServiceNotification{container, redisDB, sink, metrics.Ledger()}, nil
}

func (service *ServiceNotification) Emit(ctx context.Context, event *models.NotificationEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	// the ledger write is already committed; a cancelled request must not drop the event
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if err := redis_store.PushNotification(ctx, service.redisDB, event); err != nil {
		service.metrics.ObserveNotification("enqueue_failed")
		log.Println("notification enqueue", event.Type, event.OrderID, err)
		return
	}
	service.metrics.ObserveNotification("enqueued")
}

func (service *ServiceNotification) EmitPointsEarned(ctx context.Context, entry *models.LedgerEntry) {
	service.Emit(ctx, &models.NotificationEvent{
		Type:      models.EVENT_POINTS_EARNED,
		UserID:    entry.UserID,
		SellerID:  entry.SellerID,
		OrderID:   entry.OrderID,
		Points:    entry.Points,
		CreatedAt: entry.CreatedAt,
	})
}

func (service *ServiceNotification) EmitPointsRedeemed(ctx context.Context, entry *models.LedgerEntry) {
	service.Emit(ctx, &models.NotificationEvent{
		Type:      models.EVENT_POINTS_REDEEMED,
		UserID:    entry.UserID,
		SellerID:  entry.SellerID,
		OrderID:   entry.OrderID,
		Points:    entry.Points,
		CreatedAt: entry.CreatedAt,
	})
}

// Dispatch delivers up to max queued events. It stops at the first sink failure and
// puts that event back, so delivery is at-least-once. An event the sink refuses
// NOTIFICATION_MAX_ATTEMPTS times is moved to the dead-letter list instead.
func (service *ServiceNotification) Dispatch(ctx context.Context, max int) (int, error) {
	if max <= 0 {
		max = NOTIFICATION_BATCH_SIZE
	}

	delivered := 0
	defer service.observeQueue(ctx)

	for delivered < max {
		raw, event, err := redis_store.ClaimNotification(ctx, service.redisDB)
		if err == redis.Nil {
			return delivered, nil
		}
		if err != nil && raw == nil {
			return delivered, err
		}
		if err != nil {
			log.Println("notification dropped, undecodable payload:", err)
			service.metrics.ObserveNotification("dropped")
			if err := redis_store.AckNotification(ctx, service.redisDB, raw); err != nil {
				return delivered, err
			}
			continue
		}

		if err := service.sink.Send(ctx, event); err != nil {
			service.metrics.ObserveNotification("send_failed")
			if errors.Is(err, interfaces.ErrNotificationRejected) {
				event.Attempts++
				if event.Attempts >= NOTIFICATION_MAX_ATTEMPTS {
					log.Println("notification dead-lettered", event.Type, event.OrderID, err)
					service.metrics.ObserveNotification("dead_lettered")
					if err := redis_store.DeadLetterNotification(ctx, service.redisDB, raw, event); err != nil {
						return delivered, err
					}
					continue
				}
			}
			if rqErr := redis_store.RequeueNotification(ctx, service.redisDB, raw, event); rqErr != nil {
				log.Println("notification requeue", event.OrderID, rqErr)
			}
			return delivered, fmt.Errorf("send %s for order %s: %w", event.Type, event.OrderID, err)
		}

		if err := redis_store.AckNotification(ctx, service.redisDB, raw); err != nil {
			return delivered, err
		}
		service.metrics.ObserveNotification("delivered")
		delivered++
	}

	return delivered, nil
}

// Recover requeues events a crashed dispatcher left in flight.
func (service *ServiceNotification) Recover(ctx context.Context) (int, error) {
	return redis_store.RecoverNotifications(ctx, service.redisDB)
}

func (service *ServiceNotification) QueueLength(ctx context.Context) (int64, error) {
	return redis_store.CountQueuedNotifications(ctx, service.redisDB)
}

func (service *ServiceNotification) observeQueue(ctx context.Context) {
	length, err := service.QueueLength(ctx)
	if err != nil {
		return
	}
	service.metrics.SetNotificationQueue(length)
}
