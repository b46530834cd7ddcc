package services

import (
	"testing"

	"rewards/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func tier(name string, minimum int64, multiplier string, active bool) models.RewardTier {
	return models.RewardTier{
		Name:                 name,
		MinimumPurchaseCents: minimum,
		Multiplier:           decimal.RequireFromString(multiplier),
		Active:               active,
	}
}

func TestResolveMultiplier(t *testing.T) {
	tiers := []models.RewardTier{
		tier("Gold", 2000000, "1.5", true),
		tier("Bronze", 500000, "1.0", true),
		tier("Silver", 1000000, "1.2", true),
	}

	cases := []struct {
		name  string
		total int64
		want  string
	}{
		{"below every tier", 100000, "1"},
		{"bronze threshold", 500000, "1"},
		{"silver exact", 1000000, "1.2"},
		{"between silver and gold", 1999999, "1.2"},
		{"gold", 5000000, "1.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveMultiplier(tc.total, tiers)
			require.True(t, decimal.RequireFromString(tc.want).Equal(got), "got %s", got)
		})
	}

	// input order is untouched
	require.Equal(t, "Gold", tiers[0].Name)
	require.Equal(t, "Bronze", tiers[1].Name)
	require.Equal(t, "Silver", tiers[2].Name)
}

func TestResolveTierSkipsInactive(t *testing.T) {
	tiers := []models.RewardTier{
		tier("Silver", 1000000, "1.2", true),
		tier("Gold", 1000000, "1.5", false),
		tier("Platinum", 900000, "3", false),
	}

	got := ResolveTier(1500000, tiers)
	require.NotNil(t, got)
	require.Equal(t, "Silver", got.Name)

	require.Nil(t, ResolveTier(1500000, tiers[1:]))
	require.True(t, ResolveMultiplier(1500000, nil).Equal(decimal.NewFromInt(1)))
}

func TestResolveTierTieBreaksByName(t *testing.T) {
	tiers := []models.RewardTier{
		tier("Zeta", 1000000, "2", true),
		tier("Alpha", 1000000, "1.1", true),
		tier("Mid", 1000000, "1.7", true),
	}

	for i := 0; i < 3; i++ {
		// rotate input to prove order independence
		tiers = append(tiers[1:], tiers[0])
		got := ResolveTier(1000000, tiers)
		require.Equal(t, "Alpha", got.Name)
	}
}

func TestComputeEarnedPoints(t *testing.T) {
	rate := decimal.RequireFromString("0.0286")

	require.Equal(t, int64(34320), ComputeEarnedPoints(1000000, rate, decimal.RequireFromString("1.2")))
	require.Equal(t, int64(28600), ComputeEarnedPoints(1000000, rate, decimal.NewFromInt(1)))
	// 99 * 0.0286 = 2.8314 floors to 2
	require.Equal(t, int64(2), ComputeEarnedPoints(99, rate, decimal.NewFromInt(1)))
	require.Equal(t, int64(0), ComputeEarnedPoints(10, rate, decimal.NewFromInt(1)))
	require.Equal(t, int64(0), ComputeEarnedPoints(1000000, decimal.Zero, decimal.NewFromInt(2)))
}

func TestDiscount(t *testing.T) {
	got, err := Discount(17160, 35, 500000, REDEMPTION_POLICY_CLAMP)
	require.NoError(t, err)
	require.Equal(t, int64(500000), got)

	got, err = Discount(100, 35, 500000, REDEMPTION_POLICY_REJECT)
	require.NoError(t, err)
	require.Equal(t, int64(3500), got)

	_, err = Discount(17160, 35, 500000, REDEMPTION_POLICY_REJECT)
	require.ErrorIs(t, err, ErrOverRedemption)
}
