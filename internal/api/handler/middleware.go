package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"rewards/internal/interfaces"
	"rewards/internal/pkg/limiter"
	"rewards/internal/services"

	"github.com/go-redis/redis_rate/v10"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
)

const (
	HeaderUserID   = "X-User-Id"
	HeaderSellerID = "X-Seller-Id"
	HeaderAPIKey   = "X-Api-Key"
)

type ctxKey string

var ctxKeyAuthUser ctxKey = "AUTH_USER"
var ctxKeyAuthSeller ctxKey = "AUTH_SELLER"

// Authn trusts the user id set by the gateway in front of this service.
func Authn() echo.MiddlewareFunc {
	return identity(HeaderUserID, ctxKeyAuthUser)
}

func AuthnSeller() echo.MiddlewareFunc {
	return identity(HeaderSellerID, ctxKeyAuthSeller)
}

func identity(header string, key ctxKey) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := strings.TrimSpace(c.Request().Header.Get(header))
			if id == "" {
				//nolint:errcheck
				httpx.Abort(c, errorx.Wrap(errors.New("missing "+header), errorx.Authn), -1)
				return nil
			}

			ctx := context.WithValue(c.Request().Context(), key, id)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func AuthnInternal(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(HeaderAPIKey)
			if apiKey == "" || subtle.ConstantTimeCompare([]byte(header), []byte(apiKey)) != 1 {
				//nolint:errcheck
				httpx.Abort(c, errorx.Wrap(errors.New("unauthorized"), errorx.Authn), -1)
				return nil
			}
			return next(c)
		}
	}
}

func RateLimitRedeem(l interfaces.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := ResolveUserID(c.Request().Context())
			if err != nil {
				return httpx.RestAbort(c, nil, err)
			}

			err = l.Allow(c.Request().Context(), services.LimitKeyUserRedeem(userID), redis_rate.PerMinute(services.REDEEM_RATE_LIMIT_PER_MINUTE))
			if err != nil {
				if errors.Is(err, limiter.ErrRateLimited) {
					return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.RateLimiting))
				}
				return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
			}
			return next(c)
		}
	}
}

func ResolveUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(ctxKeyAuthUser).(string)
	if !ok {
		return "", errorx.Wrap(errors.New("missing session"), errorx.Authn)
	}
	return userID, nil
}

func ResolveSellerID(ctx context.Context) (string, error) {
	sellerID, ok := ctx.Value(ctxKeyAuthSeller).(string)
	if !ok {
		return "", errorx.Wrap(errors.New("missing seller"), errorx.Authn)
	}
	return sellerID, nil
}

// wrapServiceError maps ledger errors onto response kinds.
func wrapServiceError(err error) error {
	switch {
	case errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrOverRedemption),
		errors.Is(err, services.ErrPointsLocked):
		return errorx.Wrap(err, errorx.Invalid)
	case errors.Is(err, services.ErrInvalidConfig),
		errors.Is(err, services.ErrInvalidTierConfig),
		errors.Is(err, services.ErrInvalidRedemption),
		errors.Is(err, services.ErrInvalidOrder),
		errors.Is(err, services.ErrInvalidPoints):
		return errorx.Wrap(err, errorx.Validation)
	default:
		return errorx.Wrap(err, errorx.Service)
	}
}
