// Package testutil wires the rewards services over in-memory SQLite and miniredis.
package testutil

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"rewards/internal/datastore"
	"rewards/internal/interfaces"
	"rewards/internal/models"
	"rewards/internal/pkg/caching"
	"rewards/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis_rate/v10"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type Env struct {
	Injector  *do.Injector
	DB        *bun.DB
	Redis     redis.UniversalClient
	Miniredis *miniredis.Miniredis
	Sink      *RecordingSink
}

// RecordingSink keeps every event it receives; set Fail to make Send error.
type RecordingSink struct {
	mu     sync.Mutex
	events []models.NotificationEvent
	Fail   error
}

func (s *RecordingSink) Send(ctx context.Context, event *models.NotificationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	s.events = append(s.events, *event)
	return nil
}

func (s *RecordingSink) Events() []models.NotificationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.NotificationEvent(nil), s.events...)
}

type AllowAll struct{}

func (AllowAll) Allow(ctx context.Context, key string, limit redis_rate.Limit) error {
	return nil
}

func NewDB(t testing.TB) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and serializes writers
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		db.Close()
	})

	require.NoError(t, datastore.Migrate(context.Background(), db))
	return db
}

func NewEnv(t testing.TB) *Env {
	t.Helper()

	db := NewDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
	})

	env := &Env{DB: db, Redis: client, Miniredis: mr, Sink: &RecordingSink{}}

	injector := do.New()
	do.ProvideValue(injector, db)
	do.ProvideNamedValue(injector, "db-readonly", db)
	do.ProvideNamedValue[redis.UniversalClient](injector, "redis-queue", client)

	cache, err := caching.NewCacheRedis(client, false)
	require.NoError(t, err)
	do.ProvideValue[caching.Cache](injector, cache)
	do.ProvideValue[caching.ReadOnlyCache](injector, cache)
	do.ProvideValue(injector, redsync.New(goredis.NewPool(client)))
	do.ProvideValue[interfaces.Limiter](injector, AllowAll{})
	do.ProvideValue[interfaces.NotificationSink](injector, env.Sink)

	services.Provide(injector)
	env.Injector = injector
	return env
}

func Invoke[T any](t testing.TB, env *Env) T {
	t.Helper()
	v, err := do.Invoke[T](env.Injector)
	require.NoError(t, err)
	return v
}
