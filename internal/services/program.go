package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"rewards/internal/datastore"
	"rewards/internal/models"
	"rewards/internal/pkg/caching"

	"github.com/samber/do"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// ServiceProgram owns seller program settings and tiers.
type ServiceProgram struct {
	container     *do.Injector
	postgresDB    *bun.DB
	cache         caching.Cache
	serviceConfig *ServiceConfig
}

func NewServiceProgram(container *do.Injector) (*ServiceProgram, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	return &ServiceProgram{container, postgresDB, cache, serviceConfig}, nil
}

// GetConfig returns nil without error when the seller never configured a program.
func (service *ServiceProgram) GetConfig(ctx context.Context, sellerID string) (*models.RewardsConfig, error) {
	config, err := datastore.GetRewardsConfig(ctx, service.postgresDB, sellerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return config, nil
}

func (service *ServiceProgram) ConfigureRewards(ctx context.Context, sellerID string, active bool, earnRate decimal.Decimal, minimumPurchaseCents int64) (*models.RewardsConfig, error) {
	return service.SetConfig(ctx, sellerID, &models.RewardsConfigPatch{
		Active:               &active,
		EarnRate:             &earnRate,
		MinimumPurchaseCents: &minimumPurchaseCents,
	})
}

func (service *ServiceProgram) SetConfig(ctx context.Context, sellerID string, patch *models.RewardsConfigPatch) (*models.RewardsConfig, error) {
	if strings.TrimSpace(sellerID) == "" {
		return nil, fmt.Errorf("%w: missing seller", ErrInvalidConfig)
	}
	if patch == nil {
		patch = &models.RewardsConfigPatch{}
	}

	defaultRate, err := service.serviceConfig.GetIntConfig(ctx, CONFIG_DEFAULT_REDEMPTION_RATE_CENTS, DEFAULT_REDEMPTION_RATE_CENTS)
	if err != nil {
		return nil, err
	}

	var config *models.RewardsConfig
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := datastore.GetRewardsConfig(ctx, tx, sellerID)
		if errors.Is(err, sql.ErrNoRows) {
			current = &models.RewardsConfig{
				SellerID:            sellerID,
				EarnRate:            decimal.Zero,
				RedemptionRateCents: int64(defaultRate),
			}
		} else if err != nil {
			return err
		}

		applyConfigPatch(current, patch)
		if err := validateConfig(current); err != nil {
			return err
		}

		current.UpdatedAt = time.Now().UTC()
		if err := datastore.UpsertRewardsConfig(ctx, tx, current); err != nil {
			return err
		}

		config = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	caching.Invalidate(ctx, service.cache, DBKeyRewardsProgram(sellerID))
	return config, nil
}

func applyConfigPatch(config *models.RewardsConfig, patch *models.RewardsConfigPatch) {
	if patch.Active != nil {
		config.Active = *patch.Active
	}
	if patch.EarnRate != nil {
		config.EarnRate = *patch.EarnRate
	}
	if patch.MinimumPurchaseCents != nil {
		config.MinimumPurchaseCents = *patch.MinimumPurchaseCents
	}
	if patch.RedemptionRateCents != nil {
		config.RedemptionRateCents = *patch.RedemptionRateCents
	}
}

func validateConfig(config *models.RewardsConfig) error {
	if config.EarnRate.IsNegative() {
		return fmt.Errorf("%w: earn_rate must not be negative", ErrInvalidConfig)
	}
	if !fitsNumeric(config.EarnRate, EARN_RATE_PRECISION, EARN_RATE_SCALE) {
		return fmt.Errorf("%w: earn_rate %s needs at most %d decimals and must be below %s", ErrInvalidConfig, config.EarnRate, EARN_RATE_SCALE, decimal.New(1, EARN_RATE_PRECISION-EARN_RATE_SCALE))
	}
	if config.MinimumPurchaseCents < 0 {
		return fmt.Errorf("%w: minimum_purchase_cents must not be negative", ErrInvalidConfig)
	}
	if config.RedemptionRateCents < 0 {
		return fmt.Errorf("%w: redemption_rate_cents must not be negative", ErrInvalidConfig)
	}
	return nil
}

// fitsNumeric reports whether d stores in a numeric(precision, scale) column unchanged.
func fitsNumeric(d decimal.Decimal, precision, scale int32) bool {
	if !d.Truncate(scale).Equal(d) {
		return false
	}
	return d.Abs().LessThan(decimal.New(1, precision-scale))
}

func (service *ServiceProgram) ListTiers(ctx context.Context, sellerID string) ([]models.RewardTier, error) {
	return datastore.GetRewardTiers(ctx, service.postgresDB, sellerID)
}

// UpsertTiers replaces the seller's tier set with tiers.
func (service *ServiceProgram) UpsertTiers(ctx context.Context, sellerID string, tiers []models.RewardTier) ([]models.RewardTier, error) {
	if strings.TrimSpace(sellerID) == "" {
		return nil, fmt.Errorf("%w: missing seller", ErrInvalidTierConfig)
	}

	rows := make([]models.RewardTier, 0, len(tiers))
	names := make(map[string]bool, len(tiers))
	for _, tier := range tiers {
		name := strings.TrimSpace(tier.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tier name is required", ErrInvalidTierConfig)
		}
		if names[name] {
			return nil, fmt.Errorf("%w: duplicate tier %q", ErrInvalidTierConfig, name)
		}
		if tier.MinimumPurchaseCents < 0 {
			return nil, fmt.Errorf("%w: tier %q has a negative minimum purchase", ErrInvalidTierConfig, name)
		}
		if tier.Multiplier.IsNegative() {
			return nil, fmt.Errorf("%w: tier %q has a negative multiplier", ErrInvalidTierConfig, name)
		}
		if !fitsNumeric(tier.Multiplier, MULTIPLIER_PRECISION, MULTIPLIER_SCALE) {
			return nil, fmt.Errorf("%w: tier %q multiplier %s needs at most %d decimals and must be below %s", ErrInvalidTierConfig, name, tier.Multiplier, MULTIPLIER_SCALE, decimal.New(1, MULTIPLIER_PRECISION-MULTIPLIER_SCALE))
		}
		names[name] = true

		rows = append(rows, models.RewardTier{
			SellerID:             sellerID,
			Name:                 name,
			MinimumPurchaseCents: tier.MinimumPurchaseCents,
			Multiplier:           tier.Multiplier,
			Active:               tier.Active,
		})
	}

	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return datastore.ReplaceRewardTiers(ctx, tx, sellerID, rows)
	})
	if err != nil {
		return nil, err
	}

	caching.Invalidate(ctx, service.cache, DBKeyRewardsProgram(sellerID))
	return service.ListTiers(ctx, sellerID)
}

// GetProgram reads config and tiers in one transaction and caches the pair briefly.
// A stale snapshot only changes which rate an order earns at.
func (service *ServiceProgram) GetProgram(ctx context.Context, sellerID string) (*models.RewardsProgram, error) {
	callback := func() (*models.RewardsProgram, error) {
		program := &models.RewardsProgram{}
		err := service.postgresDB.RunInTx(ctx, snapshotTxOptions(service.postgresDB), func(ctx context.Context, tx bun.Tx) error {
			config, err := datastore.GetRewardsConfig(ctx, tx, sellerID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			if err == nil {
				program.Config = config
			}

			tiers, err := datastore.GetRewardTiers(ctx, tx, sellerID)
			if err != nil {
				return err
			}
			program.Tiers = tiers
			return nil
		})
		if err != nil {
			return nil, err
		}
		return program, nil
	}

	return caching.UseCache(ctx, service.cache, DBKeyRewardsProgram(sellerID), CACHE_TTL_1_MIN, callback)
}

func (service *ServiceProgram) RedemptionRateCents(ctx context.Context, sellerID string) (int64, error) {
	program, err := service.GetProgram(ctx, sellerID)
	if err != nil {
		return 0, err
	}
	if program.Config != nil {
		return program.Config.RedemptionRateCents, nil
	}

	rate, err := service.serviceConfig.GetIntConfig(ctx, CONFIG_DEFAULT_REDEMPTION_RATE_CENTS, DEFAULT_REDEMPTION_RATE_CENTS)
	if err != nil {
		return 0, err
	}
	return int64(rate), nil
}

func snapshotTxOptions(db *bun.DB) *sql.TxOptions {
	if db.Dialect().Name() == dialect.PG {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}
