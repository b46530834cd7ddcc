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

const (
	testSeller = "seller-1"
	testUser   = "user-1"
)

// setupProgram configures 0.0286 points per cent with Bronze x1.0 from 500000,
// Silver x1.2 from 1000000 and Gold x1.5 from 2000000 cents.
func setupProgram(t *testing.T, env *testutil.Env, sellerID string) {
	t.Helper()
	ctx := context.Background()
	serviceProgram := testutil.Invoke[*services.ServiceProgram](t, env)

	_, err := serviceProgram.ConfigureRewards(ctx, sellerID, true, decimal.RequireFromString("0.0286"), 0)
	require.NoError(t, err)

	_, err = serviceProgram.UpsertTiers(ctx, sellerID, []models.RewardTier{
		{Name: "Gold", MinimumPurchaseCents: 2000000, Multiplier: decimal.RequireFromString("1.5"), Active: true},
		{Name: "Bronze", MinimumPurchaseCents: 500000, Multiplier: decimal.RequireFromString("1.0"), Active: true},
		{Name: "Silver", MinimumPurchaseCents: 1000000, Multiplier: decimal.RequireFromString("1.2"), Active: true},
	})
	require.NoError(t, err)
}

// ledgerSum adds up every history page the way a client would.
func ledgerSum(t *testing.T, ledger *services.ServicePointsLedger, userID, sellerID string) int64 {
	t.Helper()

	var sum int64
	var cursor *int64
	for {
		page, err := ledger.History(context.Background(), userID, sellerID, cursor, 2)
		require.NoError(t, err)
		for _, entry := range page.Entries {
			sum += entry.SignedPoints()
		}
		if page.NextCursor == nil {
			return sum
		}
		cursor = page.NextCursor
	}
}
