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
	"rewards/internal/pkg/metrics"

	"github.com/samber/do"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type RedeemResult struct {
	OrderID       string `json:"order_id"`
	PointsUsed    int64  `json:"points_used"`
	DiscountCents int64  `json:"discount_cents"`
	NewTotalCents int64  `json:"new_total_cents"`
	Balance       int64  `json:"balance"`
	Duplicate     bool   `json:"duplicate"`
}

// ServiceRedemption turns points into a discount on a pending order.
type ServiceRedemption struct {
	container           *do.Injector
	postgresDB          *bun.DB
	serviceConfig       *ServiceConfig
	serviceProgram      *ServiceProgram
	servicePointsLedger *ServicePointsLedger
	serviceNotification *ServiceNotification
	metrics             *metrics.LedgerMetrics
}

func NewServiceRedemption(container *do.Injector) (*ServiceRedemption, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

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

	return &ServiceRedemption{
		container,
		postgresDB,
		serviceConfig,
		serviceProgram,
		servicePointsLedger,
		serviceNotification,
		metrics.Ledger(),
	}, nil
}

func (service *ServiceRedemption) policy(ctx context.Context) (string, error) {
	policy, err := service.serviceConfig.GetStringConfig(ctx, CONFIG_REDEMPTION_POLICY, REDEMPTION_POLICY_CLAMP)
	if err != nil {
		return REDEMPTION_POLICY_CLAMP, err
	}
	if policy == REDEMPTION_POLICY_REJECT {
		return REDEMPTION_POLICY_REJECT, nil
	}
	return REDEMPTION_POLICY_CLAMP, nil
}

// Discount converts points at rate, applying policy when it would exceed the order total.
func Discount(pointsToUse, rateCents, orderTotalCents int64, policy string) (int64, error) {
	discount := decimal.NewFromInt(pointsToUse).Mul(decimal.NewFromInt(rateCents))
	total := decimal.NewFromInt(orderTotalCents)
	if discount.LessThanOrEqual(total) {
		return discount.IntPart(), nil
	}
	if policy == REDEMPTION_POLICY_REJECT {
		return 0, fmt.Errorf("%w: %s > %d", ErrOverRedemption, discount.String(), orderTotalCents)
	}
	return orderTotalCents, nil
}

// Redeem debits pointsToUse and records the redemption in one transaction. A retry for the
// same order returns the stored outcome with Duplicate set.
func (service *ServiceRedemption) Redeem(ctx context.Context, userID, sellerID, orderID string, pointsToUse, orderTotalCents int64) (*RedeemResult, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(sellerID) == "" || strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: user, seller and order are required", ErrInvalidRedemption)
	}
	if pointsToUse <= 0 {
		return nil, fmt.Errorf("%w: points must be positive", ErrInvalidRedemption)
	}
	if orderTotalCents < 0 {
		return nil, fmt.Errorf("%w: negative total %d", ErrInvalidRedemption, orderTotalCents)
	}

	unlock, err := service.servicePointsLedger.Lock(ctx, userID, sellerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result := &RedeemResult{OrderID: orderID}

	// a retry replays the stored outcome, whatever the rate or policy is now
	stored, err := datastore.GetRedemption(ctx, service.postgresDB, orderID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if stored != nil {
		if stored.UserID != userID || stored.SellerID != sellerID {
			return nil, fmt.Errorf("%w: order %s was redeemed by another buyer", ErrInvalidRedemption, orderID)
		}
		applyStoredRedemption(result, stored)
	} else {
		rate, err := service.serviceProgram.RedemptionRateCents(ctx, sellerID)
		if err != nil {
			return nil, err
		}

		policy, err := service.policy(ctx)
		if err != nil {
			return nil, err
		}

		discount, err := Discount(pointsToUse, rate, orderTotalCents, policy)
		if err != nil {
			service.metrics.ObserveRedemption("rejected")
			return nil, err
		}

		var entry *models.LedgerEntry
		err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			var err error
			entry, err = service.servicePointsLedger.DebitTx(ctx, tx, userID, sellerID, orderID, pointsToUse, fmt.Sprintf("Redeemed on order %s", orderID))
			if errors.Is(err, ErrDuplicateDebit) {
				stored, err := datastore.GetRedemption(ctx, tx, orderID)
				if err != nil {
					return err
				}
				applyStoredRedemption(result, stored)
				return ErrDuplicateDebit
			}
			if err != nil {
				return err
			}

			redemption := &models.Redemption{
				OrderID:         orderID,
				UserID:          userID,
				SellerID:        sellerID,
				PointsUsed:      pointsToUse,
				OrderTotalCents: orderTotalCents,
				DiscountCents:   discount,
				Status:          models.REDEMPTION_STATUS_APPLIED,
				CreatedAt:       time.Now().UTC(),
			}
			if err := datastore.InsertRedemption(ctx, tx, redemption); err != nil {
				return err
			}
			result.PointsUsed = pointsToUse
			result.DiscountCents = discount
			result.NewTotalCents = orderTotalCents - discount
			return nil
		})
		if err != nil && !errors.Is(err, ErrDuplicateDebit) {
			if errors.Is(err, ErrInsufficientBalance) {
				service.metrics.ObserveRedemption("insufficient")
			}
			return nil, err
		}

		if !result.Duplicate {
			service.metrics.ObserveDebit(sellerID, pointsToUse)
			service.metrics.ObserveRedemption("applied")
			service.serviceNotification.EmitPointsRedeemed(ctx, entry)
		}
	}

	result.Balance, err = service.servicePointsLedger.Balance(ctx, userID, sellerID)
	if err != nil {
		return nil, err
	}

	if result.Duplicate {
		service.metrics.ObserveRedemption("duplicate")
	}
	return result, nil
}

func applyStoredRedemption(result *RedeemResult, stored *models.Redemption) {
	result.PointsUsed = stored.PointsUsed
	result.DiscountCents = stored.DiscountCents
	result.NewTotalCents = stored.OrderTotalCents - stored.DiscountCents
	result.Duplicate = true
}
