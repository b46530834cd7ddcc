package datastore

import (
	"context"

	"rewards/internal/models"

	"github.com/uptrace/bun"
)

func CreateTablePointsLedger(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.LedgerEntry)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.LedgerEntry)(nil)).Index("index_points_ledger_order_id_kind").IfNotExists().Unique().Column("order_id", "kind").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.LedgerEntry)(nil)).Index("index_points_ledger_user_id_seller_id_created_at").IfNotExists().Column("user_id", "seller_id", "created_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// InsertLedgerEntry reports false when an entry with the same (order_id, kind) already exists.
func InsertLedgerEntry(ctx context.Context, db bun.IDB, entry *models.LedgerEntry) (bool, error) {
	res, err := db.NewInsert().Model(entry).On("CONFLICT (order_id, kind) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func GetLedgerEntryByOrder(ctx context.Context, db bun.IDB, orderID string, kind string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := db.NewSelect().Model(&entry).Where("order_id = ? AND kind = ?", orderID, kind).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// GetLedgerEntries pages newest first. A non-nil cursor is the id of the last entry of the previous page.
func GetLedgerEntries(ctx context.Context, db bun.IDB, userID, sellerID string, cursor *int64, limit int) ([]models.LedgerEntry, error) {
	entries := []models.LedgerEntry{}
	query := db.NewSelect().Model(&entries).
		Where("user_id = ?", userID).
		Where("seller_id = ?", sellerID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (SELECT c.created_at, c.id FROM points_ledger AS c WHERE c.id = ?)", *cursor)
	}

	err := query.OrderExpr("created_at DESC, id DESC").Limit(limit).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func SumLedger(ctx context.Context, db bun.IDB, userID, sellerID string) (*models.LedgerSum, error) {
	sum := models.LedgerSum{UserID: userID, SellerID: sellerID}
	err := db.NewSelect().
		ColumnExpr("COALESCE(SUM(CASE WHEN kind = ? THEN points ELSE 0 END), 0) AS earned", models.LEDGER_KIND_EARNED).
		ColumnExpr("COALESCE(SUM(CASE WHEN kind = ? THEN points ELSE 0 END), 0) AS spent", models.LEDGER_KIND_SPENT).
		TableExpr("points_ledger").
		Where("user_id = ?", userID).
		Where("seller_id = ?", sellerID).
		Scan(ctx, &sum.Earned, &sum.Spent)
	if err != nil {
		return nil, err
	}

	return &sum, nil
}

func SumLedgerGrouped(ctx context.Context, db bun.IDB, limit, offset int) ([]models.LedgerSum, error) {
	sums := []models.LedgerSum{}
	err := db.NewSelect().
		ColumnExpr("user_id, seller_id").
		ColumnExpr("COALESCE(SUM(CASE WHEN kind = ? THEN points ELSE 0 END), 0) AS earned", models.LEDGER_KIND_EARNED).
		ColumnExpr("COALESCE(SUM(CASE WHEN kind = ? THEN points ELSE 0 END), 0) AS spent", models.LEDGER_KIND_SPENT).
		TableExpr("points_ledger").
		GroupExpr("user_id, seller_id").
		OrderExpr("user_id, seller_id").
		Limit(limit).
		Offset(offset).
		Scan(ctx, &sums)
	if err != nil {
		return nil, err
	}

	return sums, nil
}
