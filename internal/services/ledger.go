package services

import (
	"context"
	"errors"
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

// ServicePointsLedger is the system of record for points. Entries are append-only;
// points_balance is a cache of sum(earned) - sum(spent) kept in the same transaction.
type ServicePointsLedger struct {
	container          *do.Injector
	rs                 *redsync.Redsync
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	metrics            *metrics.LedgerMetrics
}

func NewServicePointsLedger(container *do.Injector) (*ServicePointsLedger, error) {
	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	return &ServicePointsLedger{container, rs, postgresDB, readonlyPostgresDB, metrics.Ledger()}, nil
}

func validateEntry(userID, sellerID, orderID string, points int64) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(sellerID) == "" || strings.TrimSpace(orderID) == "" {
		return fmt.Errorf("%w: user, seller and order are required", ErrInvalidOrder)
	}
	if points < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPoints, points)
	}
	return nil
}

// Credit appends an earned entry. A replay for the same order returns the stored entry with ErrDuplicateCredit.
func (service *ServicePointsLedger) Credit(ctx context.Context, userID, sellerID, orderID string, points int64, description string) (*models.LedgerEntry, error) {
	if err := validateEntry(userID, sellerID, orderID, points); err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		UserID:      userID,
		SellerID:    sellerID,
		OrderID:     orderID,
		Kind:        models.LEDGER_KIND_EARNED,
		Points:      points,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	var existing *models.LedgerEntry
	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		inserted, err := datastore.InsertLedgerEntry(ctx, tx, entry)
		if err != nil {
			return err
		}
		if !inserted {
			existing, err = datastore.GetLedgerEntryByOrder(ctx, tx, orderID, models.LEDGER_KIND_EARNED)
			if err != nil {
				return err
			}
			return ErrDuplicateCredit
		}

		return datastore.AddPointsBalance(ctx, tx, userID, sellerID, points, entry.CreatedAt)
	})
	if errors.Is(err, ErrDuplicateCredit) {
		service.metrics.ObserveDuplicate(models.LEDGER_KIND_EARNED)
		return existing, err
	}
	if err != nil {
		return nil, err
	}

	service.metrics.ObserveCredit(sellerID, points)
	return entry, nil
}

// Debit takes the (user, seller) lock and spends points in its own transaction.
func (service *ServicePointsLedger) Debit(ctx context.Context, userID, sellerID, orderID string, points int64, description string) (*models.LedgerEntry, error) {
	unlock, err := service.Lock(ctx, userID, sellerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var entry *models.LedgerEntry
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		entry, err = service.DebitTx(ctx, tx, userID, sellerID, orderID, points, description)
		return err
	})
	if errors.Is(err, ErrDuplicateDebit) {
		return entry, err
	}
	if err != nil {
		return nil, err
	}

	service.metrics.ObserveDebit(sellerID, points)
	return entry, nil
}

// DebitTx spends points inside the caller's transaction. The balance check and the
// decrement are one guarded statement, so the balance can never go below zero.
// Returning an error must roll the transaction back.
func (service *ServicePointsLedger) DebitTx(ctx context.Context, tx bun.IDB, userID, sellerID, orderID string, points int64, description string) (*models.LedgerEntry, error) {
	if err := validateEntry(userID, sellerID, orderID, points); err != nil {
		return nil, err
	}
	if points == 0 {
		return nil, fmt.Errorf("%w: debit must be positive", ErrInvalidPoints)
	}

	entry := &models.LedgerEntry{
		UserID:      userID,
		SellerID:    sellerID,
		OrderID:     orderID,
		Kind:        models.LEDGER_KIND_SPENT,
		Points:      points,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	inserted, err := datastore.InsertLedgerEntry(ctx, tx, entry)
	if err != nil {
		return nil, err
	}
	if !inserted {
		existing, err := datastore.GetLedgerEntryByOrder(ctx, tx, orderID, models.LEDGER_KIND_SPENT)
		if err != nil {
			return nil, err
		}
		service.metrics.ObserveDuplicate(models.LEDGER_KIND_SPENT)
		return existing, ErrDuplicateDebit
	}

	ok, err := datastore.SubtractPointsBalance(ctx, tx, userID, sellerID, points, entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInsufficientBalance
	}

	return entry, nil
}

// Lock serializes debits of one (user, seller) pair across instances.
func (service *ServicePointsLedger) Lock(ctx context.Context, userID, sellerID string) (func(), error) {
	mutex := service.rs.NewMutex(LockKeyUserPoints(userID, sellerID), redsync.WithExpiry(LOCK_TTL_POINTS))
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPointsLocked, err)
	}

	return func() {
		// nolint:errcheck
		mutex.Unlock()
	}, nil
}

func (service *ServicePointsLedger) Balance(ctx context.Context, userID, sellerID string) (int64, error) {
	return datastore.GetPointsBalance(ctx, service.postgresDB, userID, sellerID)
}

func (service *ServicePointsLedger) BalanceTx(ctx context.Context, tx bun.IDB, userID, sellerID string) (int64, error) {
	return datastore.GetPointsBalance(ctx, tx, userID, sellerID)
}

// History pages entries newest first; pass the returned NextCursor to continue.
func (service *ServicePointsLedger) History(ctx context.Context, userID, sellerID string, cursor *int64, limit int) (*models.LedgerPage, error) {
	if limit <= 0 {
		limit = DEFAULT_HISTORY_LIMIT
	}
	if limit > MAX_HISTORY_LIMIT {
		limit = MAX_HISTORY_LIMIT
	}

	entries, err := datastore.GetLedgerEntries(ctx, service.readonlyPostgresDB, userID, sellerID, cursor, limit+1)
	if err != nil {
		return nil, err
	}

	page := &models.LedgerPage{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		next := page.Entries[limit-1].ID
		page.NextCursor = &next
	}

	return page, nil
}

// Reconcile recomputes the balance from the ledger and repairs the cached row.
// It locks the balance row before summing. It returns nil when nothing drifted.
func (service *ServicePointsLedger) Reconcile(ctx context.Context, userID, sellerID string) (*models.BalanceDrift, error) {
	unlock, err := service.Lock(ctx, userID, sellerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var drift *models.BalanceDrift
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// credits take no redsync lock; the row lock makes them wait, so the sum
		// below sees every credit already counted in cached
		cached, err := datastore.LockPointsBalance(ctx, tx, userID, sellerID, time.Now().UTC())
		if err != nil {
			return err
		}

		sum, err := datastore.SumLedger(ctx, tx, userID, sellerID)
		if err != nil {
			return err
		}

		derived := sum.Earned - sum.Spent
		if derived == cached {
			return nil
		}

		drift = &models.BalanceDrift{UserID: userID, SellerID: sellerID, Cached: cached, Derived: derived}
		return datastore.SetPointsBalance(ctx, tx, userID, sellerID, derived, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}

	if drift != nil {
		service.metrics.ObserveBalanceDrift()
		log.Printf("reconcile: repaired balance user=%s seller=%s cached=%d derived=%d\n", userID, sellerID, drift.Cached, drift.Derived)
	}
	return drift, nil
}

// ReconcileAll walks every (user, seller) pair that has ledger entries.
func (service *ServicePointsLedger) ReconcileAll(ctx context.Context, batch int) ([]models.BalanceDrift, error) {
	if batch <= 0 {
		batch = RECONCILE_BATCH_SIZE
	}

	drifts := []models.BalanceDrift{}
	for offset := 0; ; offset += batch {
		sums, err := datastore.SumLedgerGrouped(ctx, service.readonlyPostgresDB, batch, offset)
		if err != nil {
			return drifts, err
		}

		for _, sum := range sums {
			cached, err := datastore.GetPointsBalance(ctx, service.readonlyPostgresDB, sum.UserID, sum.SellerID)
			if err != nil {
				return drifts, err
			}
			if cached == sum.Earned-sum.Spent {
				continue
			}

			drift, err := service.Reconcile(ctx, sum.UserID, sum.SellerID)
			if err != nil {
				return drifts, err
			}
			if drift != nil {
				drifts = append(drifts, *drift)
			}
		}

		if len(sums) < batch {
			return drifts, nil
		}
	}
}
