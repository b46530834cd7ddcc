package handler

import (
	"fmt"

	"rewards/internal/models"
	"rewards/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
	"github.com/shopspring/decimal"
)

type groupSeller struct {
	container *do.Injector
}

func (gr *groupSeller) GetConfig(c echo.Context) error {
	sellerID, err := ResolveSellerID(c.Request().Context())
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	serviceProgram, err := do.Invoke[*services.ServiceProgram](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	config, err := serviceProgram.GetConfig(c.Request().Context(), sellerID)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, config, nil)
}

func (gr *groupSeller) ConfigureRewards(c echo.Context) error {
	sellerID, err := ResolveSellerID(c.Request().Context())
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload models.RewardsConfigPatch
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceProgram, err := do.Invoke[*services.ServiceProgram](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	config, err := serviceProgram.SetConfig(c.Request().Context(), sellerID, &payload)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, config, nil)
}

func (gr *groupSeller) ListTiers(c echo.Context) error {
	sellerID, err := ResolveSellerID(c.Request().Context())
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	serviceProgram, err := do.Invoke[*services.ServiceProgram](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	tiers, err := serviceProgram.ListTiers(c.Request().Context(), sellerID)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, tiers, nil)
}

type tierPayload struct {
	Name                 string           `json:"name"`
	MinimumPurchaseCents int64            `json:"minimum_purchase_cents"`
	Multiplier           *decimal.Decimal `json:"multiplier"`
	Active               *bool            `json:"active"`
}

func (gr *groupSeller) SetTiers(c echo.Context) error {
	sellerID, err := ResolveSellerID(c.Request().Context())
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload struct {
		Tiers []tierPayload `json:"tiers"`
	}
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	tiers := make([]models.RewardTier, 0, len(payload.Tiers))
	for _, t := range payload.Tiers {
		if t.Multiplier == nil {
			return httpx.RestAbort(c, nil, wrapServiceError(fmt.Errorf("%w: tier %q has no multiplier", services.ErrInvalidTierConfig, t.Name)))
		}
		// tiers are active unless switched off explicitly
		active := t.Active == nil || *t.Active
		tiers = append(tiers, models.RewardTier{
			Name:                 t.Name,
			MinimumPurchaseCents: t.MinimumPurchaseCents,
			Multiplier:           *t.Multiplier,
			Active:               active,
		})
	}

	serviceProgram, err := do.Invoke[*services.ServiceProgram](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	stored, err := serviceProgram.UpsertTiers(c.Request().Context(), sellerID, tiers)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, stored, nil)
}
