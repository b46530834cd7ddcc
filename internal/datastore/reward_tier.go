package datastore

import (
	"context"

	"rewards/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableRewardTier(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.RewardTier)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.RewardTier)(nil)).Index("index_reward_tiers_seller_id_name").IfNotExists().Unique().Column("seller_id", "name").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func GetRewardTiers(ctx context.Context, db bun.IDB, sellerID string) ([]models.RewardTier, error) {
	tiers := []models.RewardTier{}
	err := db.NewSelect().Model(&tiers).
		Where("seller_id = ?", sellerID).
		OrderExpr("minimum_purchase_cents ASC, name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return tiers, nil
}

// ReplaceRewardTiers swaps the whole tier set of a seller; run it inside a transaction.
func ReplaceRewardTiers(ctx context.Context, db bun.IDB, sellerID string, tiers []models.RewardTier) error {
	_, err := db.NewDelete().Model((*models.RewardTier)(nil)).Where("seller_id = ?", sellerID).Exec(ctx)
	if err != nil {
		return err
	}

	if len(tiers) == 0 {
		return nil
	}

	_, err = db.NewInsert().Model(&tiers).Exec(ctx)
	return err
}
