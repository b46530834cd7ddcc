package handler

import (
	"rewards/internal/models"
	"rewards/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupOrder struct {
	container *do.Injector
}

type orderCompletedPayload struct {
	UserID          string `json:"user_id"`
	SellerID        string `json:"seller_id"`
	OrderID         string `json:"order_id"`
	OrderTotalCents int64  `json:"order_total_cents"`
}

// OrderCompleted runs the earn flow synchronously.
func (gr *groupOrder) OrderCompleted(c echo.Context) error {
	var payload orderCompletedPayload
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceEarn, err := do.Invoke[*services.ServiceEarn](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	result, err := serviceEarn.OnOrderCompleted(c.Request().Context(), payload.UserID, payload.SellerID, payload.OrderID, payload.OrderTotalCents)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, result, nil)
}

// EnqueueOrderCompletion hands the order to the outbox worker and returns at once.
func (gr *groupOrder) EnqueueOrderCompletion(c echo.Context) error {
	var payload orderCompletedPayload
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceOutbox, err := do.Invoke[*services.ServiceOutbox](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	queued, err := serviceOutbox.Enqueue(c.Request().Context(), nil, &models.OrderCompletion{
		OrderID:         payload.OrderID,
		UserID:          payload.UserID,
		SellerID:        payload.SellerID,
		OrderTotalCents: payload.OrderTotalCents,
	})
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"order_id": payload.OrderID,
		"queued":   queued,
	}, nil)
}
