package services_test

import (
	"context"
	"testing"

	"rewards/internal/models"
	"rewards/internal/services"
	"rewards/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestProgramConfig(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	serviceProgram := testutil.Invoke[*services.ServiceProgram](t, env)

	config, err := serviceProgram.GetConfig(ctx, testSeller)
	require.NoError(t, err)
	require.Nil(t, config)

	config, err = serviceProgram.ConfigureRewards(ctx, testSeller, true, decimal.RequireFromString("0.0286"), 1000)
	require.NoError(t, err)
	require.True(t, config.Active)
	require.Equal(t, int64(services.DEFAULT_REDEMPTION_RATE_CENTS), config.RedemptionRateCents)

	active := false
	config, err = serviceProgram.SetConfig(ctx, testSeller, &models.RewardsConfigPatch{Active: &active})
	require.NoError(t, err)
	require.False(t, config.Active)
	require.Equal(t, int64(1000), config.MinimumPurchaseCents)
	require.True(t, decimal.RequireFromString("0.0286").Equal(config.EarnRate))

	stored, err := serviceProgram.GetConfig(ctx, testSeller)
	require.NoError(t, err)
	require.False(t, stored.Active)
	require.True(t, decimal.RequireFromString("0.0286").Equal(stored.EarnRate))
}

func TestProgramConfigValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	serviceProgram := testutil.Invoke[*services.ServiceProgram](t, env)

	_, err := serviceProgram.ConfigureRewards(ctx, testSeller, true, decimal.RequireFromString("-0.1"), 0)
	require.ErrorIs(t, err, services.ErrInvalidConfig)

	_, err = serviceProgram.ConfigureRewards(ctx, testSeller, true, decimal.RequireFromString("0.1"), -1)
	require.ErrorIs(t, err, services.ErrInvalidConfig)

	// earn_rate is numeric(12,6)
	_, err = serviceProgram.ConfigureRewards(ctx, testSeller, true, decimal.RequireFromString("0.0000015"), 0)
	require.ErrorIs(t, err, services.ErrInvalidConfig)

	_, err = serviceProgram.ConfigureRewards(ctx, testSeller, true, decimal.NewFromInt(1000000), 0)
	require.ErrorIs(t, err, services.ErrInvalidConfig)

	config, err := serviceProgram.GetConfig(ctx, testSeller)
	require.NoError(t, err)
	require.Nil(t, config)
}

func TestUpsertTiersValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	serviceProgram := testutil.Invoke[*services.ServiceProgram](t, env)

	setupProgram(t, env, testSeller)

	cases := map[string][]models.RewardTier{
		"duplicate name": {
			{Name: "Silver", MinimumPurchaseCents: 1, Multiplier: decimal.NewFromInt(1), Active: true},
			{Name: "Silver", MinimumPurchaseCents: 2, Multiplier: decimal.NewFromInt(2), Active: true},
		},
		"negative multiplier": {
			{Name: "Silver", MinimumPurchaseCents: 1, Multiplier: decimal.NewFromInt(-1), Active: true},
		},
		"negative threshold": {
			{Name: "Silver", MinimumPurchaseCents: -1, Multiplier: decimal.NewFromInt(1), Active: true},
		},
		"empty name": {
			{Name: " ", MinimumPurchaseCents: 1, Multiplier: decimal.NewFromInt(1), Active: true},
		},
		"multiplier too precise": {
			{Name: "Silver", MinimumPurchaseCents: 1, Multiplier: decimal.RequireFromString("1.23456"), Active: true},
		},
		"multiplier overflow": {
			{Name: "Silver", MinimumPurchaseCents: 1, Multiplier: decimal.NewFromInt(10000), Active: true},
		},
	}
	for name, tiers := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := serviceProgram.UpsertTiers(ctx, testSeller, tiers)
			require.ErrorIs(t, err, services.ErrInvalidTierConfig)
		})
	}

	// rejected writes leave the previous set intact
	tiers, err := serviceProgram.ListTiers(ctx, testSeller)
	require.NoError(t, err)
	require.Len(t, tiers, 3)
	require.Equal(t, "Bronze", tiers[0].Name)
	require.Equal(t, "Gold", tiers[2].Name)
}

func TestNumericBoundsAccepted(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	serviceProgram := testutil.Invoke[*services.ServiceProgram](t, env)

	config, err := serviceProgram.ConfigureRewards(ctx, testSeller, true, decimal.RequireFromString("999999.999999"), 0)
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("999999.999999").Equal(config.EarnRate))

	// trailing zeros beyond the scale do not change the value
	_, err = serviceProgram.ConfigureRewards(ctx, testSeller, true, decimal.RequireFromString("0.02860000"), 0)
	require.NoError(t, err)

	tiers, err := serviceProgram.UpsertTiers(ctx, testSeller, []models.RewardTier{
		{Name: "Top", MinimumPurchaseCents: 1, Multiplier: decimal.RequireFromString("9999.9999"), Active: true},
	})
	require.NoError(t, err)
	require.Len(t, tiers, 1)
}

func TestGetProgramInvalidatedOnWrite(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	serviceProgram := testutil.Invoke[*services.ServiceProgram](t, env)

	setupProgram(t, env, testSeller)

	program, err := serviceProgram.GetProgram(ctx, testSeller)
	require.NoError(t, err)
	require.NotNil(t, program.Config)
	require.Len(t, program.Tiers, 3)
	require.True(t, env.Miniredis.Exists(services.DBKeyRewardsProgram(testSeller)))

	_, err = serviceProgram.UpsertTiers(ctx, testSeller, []models.RewardTier{
		{Name: "Only", MinimumPurchaseCents: 0, Multiplier: decimal.NewFromInt(2), Active: true},
	})
	require.NoError(t, err)
	require.False(t, env.Miniredis.Exists(services.DBKeyRewardsProgram(testSeller)))

	program, err = serviceProgram.GetProgram(ctx, testSeller)
	require.NoError(t, err)
	require.Len(t, program.Tiers, 1)
	require.True(t, decimal.NewFromInt(2).Equal(program.Tiers[0].Multiplier))
}

func TestRedemptionRateDefaults(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	serviceProgram := testutil.Invoke[*services.ServiceProgram](t, env)
	serviceConfig := testutil.Invoke[*services.ServiceConfig](t, env)

	rate, err := serviceProgram.RedemptionRateCents(ctx, "unknown-seller")
	require.NoError(t, err)
	require.Equal(t, int64(services.DEFAULT_REDEMPTION_RATE_CENTS), rate)

	_, err = serviceConfig.SetConfig(ctx, services.CONFIG_DEFAULT_REDEMPTION_RATE_CENTS, "50")
	require.NoError(t, err)

	rate, err = serviceProgram.RedemptionRateCents(ctx, "another-seller")
	require.NoError(t, err)
	require.Equal(t, int64(50), rate)

	customRate := int64(10)
	_, err = serviceProgram.SetConfig(ctx, testSeller, &models.RewardsConfigPatch{RedemptionRateCents: &customRate})
	require.NoError(t, err)

	rate, err = serviceProgram.RedemptionRateCents(ctx, testSeller)
	require.NoError(t, err)
	require.Equal(t, int64(10), rate)
}
