package datastore

import (
	"context"

	"rewards/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableRedemption(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Redemption)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Redemption)(nil)).Index("index_redemptions_user_id_seller_id").IfNotExists().Column("user_id", "seller_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertRedemption(ctx context.Context, db bun.IDB, redemption *models.Redemption) error {
	_, err := db.NewInsert().Model(redemption).Exec(ctx)
	return err
}

func GetRedemption(ctx context.Context, db bun.IDB, orderID string) (*models.Redemption, error) {
	var redemption models.Redemption
	err := db.NewSelect().Model(&redemption).Where("order_id = ?", orderID).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &redemption, nil
}
