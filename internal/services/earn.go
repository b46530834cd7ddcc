package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"rewards/internal/models"
	"rewards/internal/pkg/metrics"

	"github.com/samber/do"
	"github.com/shopspring/decimal"
)

type EarnResult struct {
	OrderID    string              `json:"order_id"`
	Points     int64               `json:"points"`
	Multiplier decimal.Decimal     `json:"multiplier"`
	Skipped    bool                `json:"skipped"`
	SkipReason string              `json:"skip_reason,omitempty"`
	Duplicate  bool                `json:"duplicate"`
	Entry      *models.LedgerEntry `json:"entry,omitempty"`
}

// ServiceEarn credits buyers for completed orders.
type ServiceEarn struct {
	container           *do.Injector
	serviceProgram      *ServiceProgram
	servicePointsLedger *ServicePointsLedger
	serviceNotification *ServiceNotification
	metrics             *metrics.LedgerMetrics
}

func NewServiceEarn(container *do.Injector) (*ServiceEarn, error) {
	serviceProgram, err := do.Invoke[*ServiceProgram](container)
	if err != nil {
		return nil, err
	}

	servicePointsLedger, err := do.Invoke[*ServicePointsLedger](container)
	if err != nil {
		return nil, err
	}

	serviceNotification, err := do.Invoke[*ServiceNotification](container)
	if err != nil {
		return nil, err
	}

	return &ServiceEarn{container, serviceProgram, servicePointsLedger, serviceNotification, metrics.Ledger()}, nil
}

// OnOrderCompleted is safe to call more than once per order. Ineligible orders are
// reported through EarnResult.Skipped; only storage failures are returned.
func (service *ServiceEarn) OnOrderCompleted(ctx context.Context, userID, sellerID, orderID string, orderTotalCents int64) (*EarnResult, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(sellerID) == "" || strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: user, seller and order are required", ErrInvalidOrder)
	}
	if orderTotalCents < 0 {
		return nil, fmt.Errorf("%w: negative total %d", ErrInvalidOrder, orderTotalCents)
	}

	program, err := service.serviceProgram.GetProgram(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	result := &EarnResult{OrderID: orderID, Multiplier: defaultMultiplier}
	config := program.Config
	if config == nil || !config.Active {
		return service.skip(result, SKIP_REASON_CONFIG_INACTIVE), nil
	}
	if orderTotalCents < config.MinimumPurchaseCents {
		return service.skip(result, SKIP_REASON_BELOW_MINIMUM_PURCHASE), nil
	}

	result.Multiplier = ResolveMultiplier(orderTotalCents, program.Tiers)
	result.Points = ComputeEarnedPoints(orderTotalCents, config.EarnRate, result.Multiplier)
	if result.Points == 0 {
		return service.skip(result, SKIP_REASON_ZERO_POINTS), nil
	}

	description := fmt.Sprintf("Earned on order %s", orderID)
	if tier := ResolveTier(orderTotalCents, program.Tiers); tier != nil {
		description = fmt.Sprintf("Earned on order %s (%s x%s)", orderID, tier.Name, tier.Multiplier.String())
	}

	entry, err := service.servicePointsLedger.Credit(ctx, userID, sellerID, orderID, result.Points, description)
	if errors.Is(err, ErrDuplicateCredit) {
		result.Duplicate = true
		result.Entry = entry
		result.Points = entry.Points
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	result.Entry = entry
	service.serviceNotification.EmitPointsEarned(ctx, entry)
	return result, nil
}

func (service *ServiceEarn) skip(result *EarnResult, reason string) *EarnResult {
	result.Skipped = true
	result.SkipReason = reason
	result.Points = 0
	service.metrics.ObserveEarnSkipped(reason)
	log.Printf("earn skipped order=%s reason=%s\n", result.OrderID, reason)
	return result
}
