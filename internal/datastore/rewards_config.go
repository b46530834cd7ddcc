package datastore

import (
	"context"

	"rewards/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableRewardsConfig(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.RewardsConfig)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

func GetRewardsConfig(ctx context.Context, db bun.IDB, sellerID string) (*models.RewardsConfig, error) {
	var config models.RewardsConfig
	err := db.NewSelect().Model(&config).Where("seller_id = ?", sellerID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func UpsertRewardsConfig(ctx context.Context, db bun.IDB, config *models.RewardsConfig) error {
	_, err := db.NewInsert().Model(config).
		On("CONFLICT (seller_id) DO UPDATE").
		Set("active = EXCLUDED.active").
		Set("earn_rate = EXCLUDED.earn_rate").
		Set("minimum_purchase_cents = EXCLUDED.minimum_purchase_cents").
		Set("redemption_rate_cents = EXCLUDED.redemption_rate_cents").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}
