package container

import (
	"database/sql"
	"os"

	"rewards/internal/interfaces"
	"rewards/internal/pkg/caching"
	"rewards/internal/pkg/limiter"
	"rewards/internal/pkg/notifier"
	"rewards/internal/services"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

func newRedis(clusterEnv, urlEnv string) (redis.UniversalClient, error) {
	clusterURL := os.Getenv(clusterEnv)
	if clusterURL != "" {
		clusterOpts, err := redis.ParseClusterURL(clusterURL)
		if err != nil {
			return nil, err
		}
		return redis.NewClusterClient(clusterOpts), nil
	}
	return db.InitRedis(&db.RedisConfig{
		URL: os.Getenv(urlEnv),
	})
}

// New wires storage, redis clients and the rewards services.
func New(vs map[string]string) *do.Injector {
	injector := do.New()
	vs["API_MODE"] = os.Getenv("API_MODE")
	vs["API_ORIGINS"] = os.Getenv("API_ORIGINS")
	vs["NOTIFICATION_SINK_URL"] = os.Getenv("NOTIFICATION_SINK_URL")

	if vs["API_MODE"] == "" {
		vs["API_MODE"] = "production"
	}
	if vs["API_ORIGINS"] == "" {
		vs["API_ORIGINS"] = "*"
	}

	do.ProvideNamedValue(injector, "envs", vs)

	do.Provide(injector, func(i *do.Injector) (*bun.DB, error) {
		sqldb := sql.OpenDB(pgdriver.NewConnector(
			pgdriver.WithDSN(os.Getenv("DB_DSN")),
			pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
		))

		return bun.NewDB(sqldb, pgdialect.New()), nil
	})

	do.ProvideNamed(injector, "db-readonly", func(i *do.Injector) (*bun.DB, error) {
		dsn := os.Getenv("DB_DSN_READONLY")
		if dsn == "" {
			return do.Invoke[*bun.DB](i)
		}

		sqldb := sql.OpenDB(pgdriver.NewConnector(
			pgdriver.WithDSN(dsn),
			pgdriver.WithPassword(os.Getenv("DB_PASSWORD_READONLY")),
		))

		return bun.NewDB(sqldb, pgdialect.New()), nil
	})

	do.ProvideNamed(injector, "redis-cache", func(i *do.Injector) (redis.UniversalClient, error) {
		return newRedis("CLUSTER_REDIS_CACHE", "REDIS_CACHE")
	})

	do.ProvideNamed(injector, "redis-limiter", func(i *do.Injector) (redis.UniversalClient, error) {
		return newRedis("CLUSTER_REDIS_LIMITER", "REDIS_LIMITER")
	})

	do.ProvideNamed(injector, "redis-mutex", func(i *do.Injector) (redis.UniversalClient, error) {
		return newRedis("CLUSTER_REDIS_MUTEX", "REDIS_MUTEX")
	})

	do.ProvideNamed(injector, "redis-queue", func(i *do.Injector) (redis.UniversalClient, error) {
		return newRedis("CLUSTER_REDIS_QUEUE", "REDIS_QUEUE")
	})

	do.Provide(injector, func(i *do.Injector) (caching.Cache, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-cache")
		if err != nil {
			return nil, err
		}

		return caching.NewCacheRedis(dbRedis, false)
	})

	do.Provide(injector, func(i *do.Injector) (caching.ReadOnlyCache, error) {
		return do.Invoke[caching.Cache](i)
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Limiter, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-limiter")
		if err != nil {
			return nil, err
		}

		return limiter.NewLimiter(dbRedis)
	})

	do.Provide(injector, func(i *do.Injector) (*redsync.Redsync, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-mutex")
		if err != nil {
			return nil, err
		}

		pool := goredis.NewPool(dbRedis)
		return redsync.New(pool), nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.NotificationSink, error) {
		if vs["NOTIFICATION_SINK_URL"] == "" {
			return notifier.LogSink{}, nil
		}
		return notifier.NewWebhookSink(&notifier.WebhookConfig{URL: vs["NOTIFICATION_SINK_URL"]}), nil
	})

	services.Provide(injector)

	return injector
}
