package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"rewards/internal/datastore"
	"rewards/internal/models"
	"rewards/internal/pkg/metrics"

	"github.com/go-redsync/redsync/v4"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

// ServiceOutbox drains order_completions into the earn flow so rewards never hold up checkout.
type ServiceOutbox struct {
	container   *do.Injector
	rs          *redsync.Redsync
	postgresDB  *bun.DB
	serviceEarn *ServiceEarn
	metrics     *metrics.LedgerMetrics
}

func NewServiceOutbox(container *do.Injector) (*ServiceOutbox, error) {
	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	serviceEarn, err := do.Invoke[*ServiceEarn](container)
	if err != nil {
		return nil, err
	}

	return &ServiceOutbox{container, rs, postgresDB, serviceEarn, metrics.Ledger()}, nil
}

// Enqueue records a completed order. Pass the order service's bun.Tx as db to commit it
// with the order; nil uses the service's own connection. A repeated order id is ignored.
func (service *ServiceOutbox) Enqueue(ctx context.Context, db bun.IDB, completion *models.OrderCompletion) (bool, error) {
	if strings.TrimSpace(completion.OrderID) == "" || strings.TrimSpace(completion.UserID) == "" || strings.TrimSpace(completion.SellerID) == "" {
		return false, fmt.Errorf("%w: user, seller and order are required", ErrInvalidOrder)
	}
	if completion.OrderTotalCents < 0 {
		return false, fmt.Errorf("%w: negative total %d", ErrInvalidOrder, completion.OrderTotalCents)
	}
	if db == nil {
		db = service.postgresDB
	}

	completion.Attempts = 0
	completion.LastError = ""
	completion.ProcessedAt = nil
	if completion.CreatedAt.IsZero() {
		completion.CreatedAt = time.Now().UTC()
	}

	return datastore.InsertOrderCompletion(ctx, db, completion)
}

// ProcessPending runs the earn flow for up to batch unprocessed completions, oldest first.
// Only one instance drains at a time; the others return immediately.
func (service *ServiceOutbox) ProcessPending(ctx context.Context, batch int) (int, error) {
	if batch <= 0 {
		batch = OUTBOX_BATCH_SIZE
	}

	mutex := service.rs.NewMutex(LockKeyOrderOutbox(), redsync.WithExpiry(5*time.Minute))
	if err := mutex.TryLockContext(ctx); err != nil {
		log.Println("outbox: skip, lock held", err)
		return 0, nil
	}
	// nolint:errcheck
	defer mutex.Unlock()

	completions, err := datastore.GetPendingOrderCompletions(ctx, service.postgresDB, OUTBOX_MAX_ATTEMPTS, batch)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, completion := range completions {
		_, err := service.serviceEarn.OnOrderCompleted(ctx, completion.UserID, completion.SellerID, completion.OrderID, completion.OrderTotalCents)
		if err != nil {
			service.metrics.ObserveOutboxFailure()
			log.Printf("outbox: order=%s attempt=%d err=%v\n", completion.OrderID, completion.Attempts+1, err)
			if err := datastore.MarkOrderCompletionFailed(ctx, service.postgresDB, completion.OrderID, err.Error()); err != nil {
				return processed, err
			}
			continue
		}

		if err := datastore.MarkOrderCompletionProcessed(ctx, service.postgresDB, completion.OrderID, time.Now().UTC()); err != nil {
			return processed, err
		}
		processed++
	}

	return processed, nil
}
