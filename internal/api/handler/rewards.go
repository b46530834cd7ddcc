package handler

import (
	"strconv"

	"rewards/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupRewards struct {
	container *do.Injector
}

func (gr *groupRewards) Redeem(c echo.Context) error {
	userID, err := ResolveUserID(c.Request().Context())
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload struct {
		OrderID         string `json:"order_id"`
		PointsToUse     int64  `json:"points_to_use"`
		OrderTotalCents int64  `json:"order_total_cents"`
	}
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceRedemption, err := do.Invoke[*services.ServiceRedemption](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	result, err := serviceRedemption.Redeem(c.Request().Context(), userID, c.Param("seller"), payload.OrderID, payload.PointsToUse, payload.OrderTotalCents)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, result, nil)
}

func (gr *groupRewards) Balance(c echo.Context) error {
	userID, err := ResolveUserID(c.Request().Context())
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	servicePointsLedger, err := do.Invoke[*services.ServicePointsLedger](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	sellerID := c.Param("seller")
	balance, err := servicePointsLedger.Balance(c.Request().Context(), userID, sellerID)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"user_id":   userID,
		"seller_id": sellerID,
		"balance":   balance,
	}, nil)
}

func (gr *groupRewards) History(c echo.Context) error {
	userID, err := ResolveUserID(c.Request().Context())
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var cursor *int64
	if v := c.QueryParam("cursor"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
		}
		cursor = &id
	}

	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
		}
	}

	servicePointsLedger, err := do.Invoke[*services.ServicePointsLedger](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	page, err := servicePointsLedger.History(c.Request().Context(), userID, c.Param("seller"), cursor, limit)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, page, nil)
}
