package datastore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"rewards/internal/models"

	"github.com/uptrace/bun"
)

func CreateTablePointsBalance(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.PointsBalance)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func AddPointsBalance(ctx context.Context, db bun.IDB, userID, sellerID string, points int64, now time.Time) error {
	balance := &models.PointsBalance{
		UserID:    userID,
		SellerID:  sellerID,
		Balance:   points,
		UpdatedAt: now,
	}
	_, err := db.NewInsert().Model(balance).
		On("CONFLICT (user_id, seller_id) DO UPDATE").
		Set("balance = points_balance.balance + EXCLUDED.balance").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// SubtractPointsBalance only applies when the stored balance covers points; it reports whether it did.
func SubtractPointsBalance(ctx context.Context, db bun.IDB, userID, sellerID string, points int64, now time.Time) (bool, error) {
	res, err := db.NewUpdate().
		Model((*models.PointsBalance)(nil)).
		Set("balance = balance - ?", points).
		Set("updated_at = ?", now).
		Where("user_id = ?", userID).
		Where("seller_id = ?", sellerID).
		Where("balance >= ?", points).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

// LockPointsBalance creates the row if missing and holds its row lock until tx ends, so
// concurrent AddPointsBalance and SubtractPointsBalance calls wait for tx.
func LockPointsBalance(ctx context.Context, tx bun.IDB, userID, sellerID string, now time.Time) (int64, error) {
	if err := AddPointsBalance(ctx, tx, userID, sellerID, 0, now); err != nil {
		return 0, err
	}

	return GetPointsBalance(ctx, tx, userID, sellerID)
}

func SetPointsBalance(ctx context.Context, db bun.IDB, userID, sellerID string, points int64, now time.Time) error {
	balance := &models.PointsBalance{
		UserID:    userID,
		SellerID:  sellerID,
		Balance:   points,
		UpdatedAt: now,
	}
	_, err := db.NewInsert().Model(balance).
		On("CONFLICT (user_id, seller_id) DO UPDATE").
		Set("balance = EXCLUDED.balance").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func GetPointsBalance(ctx context.Context, db bun.IDB, userID, sellerID string) (int64, error) {
	var balance models.PointsBalance
	err := db.NewSelect().Model(&balance).Where("user_id = ? AND seller_id = ?", userID, sellerID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return balance.Balance, nil
}
