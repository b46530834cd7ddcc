package datastore

import (
	"context"

	"github.com/uptrace/bun"
)

// Migrate creates every table the rewards service uses. It is idempotent.
func Migrate(ctx context.Context, db *bun.DB) error {
	steps := []func(context.Context, *bun.DB) error{
		CreateTableConfig,
		CreateTableRewardsConfig,
		CreateTableRewardTier,
		CreateTablePointsLedger,
		CreateTablePointsBalance,
		CreateTableRedemption,
		CreateTableOrderCompletion,
	}

	for _, step := range steps {
		if err := step(ctx, db); err != nil {
			return err
		}
	}

	return nil
}
