package services_test

import (
	"context"
	"testing"

	"rewards/internal/datastore/redis_store"
	"rewards/internal/models"
	"rewards/internal/services"
	"rewards/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestOnOrderCompletedEarnsTierPoints(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	setupProgram(t, env, testSeller)
	serviceEarn := testutil.Invoke[*services.ServiceEarn](t, env)
	ledger := testutil.Invoke[*services.ServicePointsLedger](t, env)

	result, err := serviceEarn.OnOrderCompleted(ctx, testUser, testSeller, "order-1", 1000000)
	require.NoError(t, err)
	require.False(t, result.Skipped)
	require.False(t, result.Duplicate)
	require.Equal(t, int64(34320), result.Points)
	require.True(t, decimal.RequireFromString("1.2").Equal(result.Multiplier))
	require.Equal(t, models.LEDGER_KIND_EARNED, result.Entry.Kind)

	balance, err := ledger.Balance(ctx, testUser, testSeller)
	require.NoError(t, err)
	require.Equal(t, int64(34320), balance)

	queued, err := redis_store.CountQueuedNotifications(ctx, env.Redis)
	require.NoError(t, err)
	require.Equal(t, int64(1), queued)
}

func TestOnOrderCompletedIsIdempotent(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	setupProgram(t, env, testSeller)
	serviceEarn := testutil.Invoke[*services.ServiceEarn](t, env)
	ledger := testutil.Invoke[*services.ServicePointsLedger](t, env)

	_, err := serviceEarn.OnOrderCompleted(ctx, testUser, testSeller, "order-1", 1000000)
	require.NoError(t, err)

	result, err := serviceEarn.OnOrderCompleted(ctx, testUser, testSeller, "order-1", 1000000)
	require.NoError(t, err)
	require.True(t, result.Duplicate)
	require.Equal(t, int64(34320), result.Points)

	balance, err := ledger.Balance(ctx, testUser, testSeller)
	require.NoError(t, err)
	require.Equal(t, int64(34320), balance)

	// no second notification for a replay
	queued, err := redis_store.CountQueuedNotifications(ctx, env.Redis)
	require.NoError(t, err)
	require.Equal(t, int64(1), queued)
}

func TestOnOrderCompletedSkips(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	setupProgram(t, env, testSeller)
	serviceEarn := testutil.Invoke[*services.ServiceEarn](t, env)
	serviceProgram := testutil.Invoke[*services.ServiceProgram](t, env)
	ledger := testutil.Invoke[*services.ServicePointsLedger](t, env)

	result, err := serviceEarn.OnOrderCompleted(ctx, testUser, "unknown-seller", "order-0", 1000000)
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.Equal(t, services.SKIP_REASON_CONFIG_INACTIVE, result.SkipReason)

	result, err = serviceEarn.OnOrderCompleted(ctx, testUser, testSeller, "order-1", 10)
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.Equal(t, services.SKIP_REASON_ZERO_POINTS, result.SkipReason)

	minimum := int64(600000)
	_, err = serviceProgram.SetConfig(ctx, testSeller, &models.RewardsConfigPatch{MinimumPurchaseCents: &minimum})
	require.NoError(t, err)

	result, err = serviceEarn.OnOrderCompleted(ctx, testUser, testSeller, "order-2", 500000)
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.Equal(t, services.SKIP_REASON_BELOW_MINIMUM_PURCHASE, result.SkipReason)

	balance, err := ledger.Balance(ctx, testUser, testSeller)
	require.NoError(t, err)
	require.Zero(t, balance)

	_, err = serviceEarn.OnOrderCompleted(ctx, testUser, testSeller, "order-3", -1)
	require.ErrorIs(t, err, services.ErrInvalidOrder)
}

func TestOnOrderCompletedToggle(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	setupProgram(t, env, testSeller)
	serviceEarn := testutil.Invoke[*services.ServiceEarn](t, env)
	serviceProgram := testutil.Invoke[*services.ServiceProgram](t, env)
	ledger := testutil.Invoke[*services.ServicePointsLedger](t, env)

	// warm the snapshot cache so the toggle has to invalidate it
	_, err := serviceEarn.OnOrderCompleted(ctx, testUser, testSeller, "order-1", 500000)
	require.NoError(t, err)

	inactive := false
	_, err = serviceProgram.SetConfig(ctx, testSeller, &models.RewardsConfigPatch{Active: &inactive})
	require.NoError(t, err)

	result, err := serviceEarn.OnOrderCompleted(ctx, testUser, testSeller, "order-2", 1000000)
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.Equal(t, services.SKIP_REASON_CONFIG_INACTIVE, result.SkipReason)

	active := true
	_, err = serviceProgram.SetConfig(ctx, testSeller, &models.RewardsConfigPatch{Active: &active})
	require.NoError(t, err)

	result, err = serviceEarn.OnOrderCompleted(ctx, testUser, testSeller, "order-3", 1000000)
	require.NoError(t, err)
	require.Equal(t, int64(34320), result.Points)

	// 500000 * 0.0286 = 14300 from order-1, nothing from order-2
	balance, err := ledger.Balance(ctx, testUser, testSeller)
	require.NoError(t, err)
	require.Equal(t, int64(14300+34320), balance)
}
