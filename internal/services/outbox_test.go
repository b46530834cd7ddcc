package services_test

import (
	"context"
	"testing"

	"rewards/internal/datastore"
	"rewards/internal/models"
	"rewards/internal/services"
	"rewards/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestOutboxProcessesOnce(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	setupProgram(t, env, testSeller)
	serviceOutbox := testutil.Invoke[*services.ServiceOutbox](t, env)
	ledger := testutil.Invoke[*services.ServicePointsLedger](t, env)

	completion := &models.OrderCompletion{OrderID: "order-1", UserID: testUser, SellerID: testSeller, OrderTotalCents: 1000000}
	queued, err := serviceOutbox.Enqueue(ctx, nil, completion)
	require.NoError(t, err)
	require.True(t, queued)

	queued, err = serviceOutbox.Enqueue(ctx, nil, &models.OrderCompletion{OrderID: "order-1", UserID: testUser, SellerID: testSeller, OrderTotalCents: 1000000})
	require.NoError(t, err)
	require.False(t, queued)

	processed, err := serviceOutbox.ProcessPending(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, processed)

	processed, err = serviceOutbox.ProcessPending(ctx, 10)
	require.NoError(t, err)
	require.Zero(t, processed)

	stored, err := datastore.GetOrderCompletion(ctx, env.DB, "order-1")
	require.NoError(t, err)
	require.NotNil(t, stored.ProcessedAt)
	require.Equal(t, 1, stored.Attempts)

	balance, err := ledger.Balance(ctx, testUser, testSeller)
	require.NoError(t, err)
	require.Equal(t, int64(34320), balance)
}

func TestOutboxEnqueueInCallerTransaction(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	serviceOutbox := testutil.Invoke[*services.ServiceOutbox](t, env)

	tx, err := env.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = serviceOutbox.Enqueue(ctx, tx, &models.OrderCompletion{OrderID: "order-1", UserID: testUser, SellerID: testSeller, OrderTotalCents: 100})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	_, err = datastore.GetOrderCompletion(ctx, env.DB, "order-1")
	require.Error(t, err)
}

func TestOutboxRecordsFailures(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	serviceOutbox := testutil.Invoke[*services.ServiceOutbox](t, env)

	// rows written by an older producer may bypass Enqueue validation
	_, err := datastore.InsertOrderCompletion(ctx, env.DB, &models.OrderCompletion{OrderID: "order-bad", SellerID: testSeller, OrderTotalCents: 100})
	require.NoError(t, err)

	for i := 0; i < services.OUTBOX_MAX_ATTEMPTS+2; i++ {
		processed, err := serviceOutbox.ProcessPending(ctx, 10)
		require.NoError(t, err)
		require.Zero(t, processed)
	}

	stored, err := datastore.GetOrderCompletion(ctx, env.DB, "order-bad")
	require.NoError(t, err)
	require.Nil(t, stored.ProcessedAt)
	require.Equal(t, services.OUTBOX_MAX_ATTEMPTS, stored.Attempts)
	require.Contains(t, stored.LastError, services.ErrInvalidOrder.Error())
}

func TestOutboxRejectsInvalidCompletion(t *testing.T) {
	env := testutil.NewEnv(t)
	serviceOutbox := testutil.Invoke[*services.ServiceOutbox](t, env)

	_, err := serviceOutbox.Enqueue(context.Background(), nil, &models.OrderCompletion{OrderID: "order-1", SellerID: testSeller})
	require.ErrorIs(t, err, services.ErrInvalidOrder)
}
