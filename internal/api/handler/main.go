package handler

import (
	"net/http"

	"rewards/internal/interfaces"

	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do"
)

type Config struct {
	Container      *do.Injector
	Mode           string
	Origins        []string
	InternalAPIKey string
}

func New(cfg *Config) (http.Handler, error) {
	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == "debug" {
		r.Debug = true
		pprof.Register(r)
	}

	r.JSONSerializer = httpx.SegmentJSONSerializer{}
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}\t${method}\t${uri}\t${status}\t${latency_human}\n",
	}))
	r.Use(middleware.Recover())

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "🎁")
	})
	r.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	routesAPIv1 := r.Group("/api/v1")
	{
		limiter, err := do.Invoke[interfaces.Limiter](cfg.Container)
		if err != nil {
			return nil, err
		}

		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.Origins,
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, HeaderUserID, HeaderSellerID},
			AllowCredentials: true,
			MaxAge:           60 * 60,
		})

		routesAPIv1.Use(cors)
		routesAPIv1.GET("", Hello)

		routesAPIv1Seller := routesAPIv1.Group("/seller/rewards")
		routesAPIv1Seller.Use(AuthnSeller())
		{
			s := groupSeller{cfg.Container}
			routesAPIv1Seller.GET("/config", s.GetConfig)
			routesAPIv1Seller.PUT("/config", s.ConfigureRewards)
			routesAPIv1Seller.GET("/tiers", s.ListTiers)
			routesAPIv1Seller.PUT("/tiers", s.SetTiers)
		}

		routesAPIv1Internal := routesAPIv1.Group("/internal")
		routesAPIv1Internal.Use(AuthnInternal(cfg.InternalAPIKey))
		{
			o := groupOrder{cfg.Container}
			routesAPIv1Internal.POST("/orders/completed", o.OrderCompleted)
			routesAPIv1Internal.POST("/orders/outbox", o.EnqueueOrderCompletion)
		}

		routesAPIv1Rewards := routesAPIv1.Group("/rewards/:seller")
		routesAPIv1Rewards.Use(Authn())
		{
			rw := groupRewards{cfg.Container}
			routesAPIv1Rewards.POST("/redeem", rw.Redeem, RateLimitRedeem(limiter))
			routesAPIv1Rewards.GET("/balance", rw.Balance)
			routesAPIv1Rewards.GET("/history", rw.History)
		}
	}

	return r, nil
}

func Hello(c echo.Context) error {
	return httpx.RestAbort(c, "hello world", nil)
}
