package datastore

import (
	"context"
	"time"

	"rewards/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableOrderCompletion(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.OrderCompletion)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.OrderCompletion)(nil)).Index("index_order_completions_processed_at_created_at").IfNotExists().Column("processed_at", "created_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// InsertOrderCompletion accepts a bun.Tx so the order service can enqueue in its own transaction.
func InsertOrderCompletion(ctx context.Context, db bun.IDB, completion *models.OrderCompletion) (bool, error) {
	res, err := db.NewInsert().Model(completion).On("CONFLICT (order_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func GetPendingOrderCompletions(ctx context.Context, db bun.IDB, maxAttempts, limit int) ([]models.OrderCompletion, error) {
	completions := []models.OrderCompletion{}
	err := db.NewSelect().Model(&completions).
		Where("processed_at IS NULL").
		Where("attempts < ?", maxAttempts).
		OrderExpr("created_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return completions, nil
}

func GetOrderCompletion(ctx context.Context, db bun.IDB, orderID string) (*models.OrderCompletion, error) {
	var completion models.OrderCompletion
	err := db.NewSelect().Model(&completion).Where("order_id = ?", orderID).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &completion, nil
}

func MarkOrderCompletionProcessed(ctx context.Context, db bun.IDB, orderID string, now time.Time) error {
	_, err := db.NewUpdate().
		Model((*models.OrderCompletion)(nil)).
		Set("processed_at = ?", now).
		Set("attempts = attempts + 1").
		Set("last_error = ''").
		Where("order_id = ?", orderID).
		Exec(ctx)
	return err
}

func MarkOrderCompletionFailed(ctx context.Context, db bun.IDB, orderID string, reason string) error {
	_, err := db.NewUpdate().
		Model((*models.OrderCompletion)(nil)).
		Set("attempts = attempts + 1").
		Set("last_error = ?", reason).
		Where("order_id = ?", orderID).
		Exec(ctx)
	return err
}
