package services

import (
	"rewards/internal/models"

	"github.com/shopspring/decimal"
)

var defaultMultiplier = decimal.NewFromInt(1)

// ResolveTier picks the active tier with the highest threshold the order total reaches.
// Tiers sharing a threshold resolve to the lexicographically smallest name. tiers is not modified.
func ResolveTier(orderTotalCents int64, tiers []models.RewardTier) *models.RewardTier {
	var best *models.RewardTier
	for i := range tiers {
		tier := &tiers[i]
		if !tier.Active || tier.MinimumPurchaseCents > orderTotalCents {
			continue
		}
		if best == nil ||
			tier.MinimumPurchaseCents > best.MinimumPurchaseCents ||
			(tier.MinimumPurchaseCents == best.MinimumPurchaseCents && tier.Name < best.Name) {
			best = tier
		}
	}
	return best
}

// ResolveMultiplier returns 1 when no tier applies.
func ResolveMultiplier(orderTotalCents int64, tiers []models.RewardTier) decimal.Decimal {
	tier := ResolveTier(orderTotalCents, tiers)
	if tier == nil {
		return defaultMultiplier
	}
	return tier.Multiplier
}

// ComputeEarnedPoints floors total * earnRate * multiplier, never rounding up.
func ComputeEarnedPoints(orderTotalCents int64, earnRate, multiplier decimal.Decimal) int64 {
	points := decimal.NewFromInt(orderTotalCents).Mul(earnRate).Mul(multiplier).Floor()
	if points.IsNegative() {
		return 0
	}
	return points.IntPart()
}
