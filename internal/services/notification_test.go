package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"rewards/internal/datastore/redis_store"
	"rewards/internal/interfaces"
	"rewards/internal/models"
	"rewards/internal/services"
	"rewards/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestNotificationDispatch(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	serviceNotification := testutil.Invoke[*services.ServiceNotification](t, env)

	serviceNotification.Emit(ctx, &models.NotificationEvent{Type: models.EVENT_POINTS_EARNED, UserID: testUser, SellerID: testSeller, OrderID: "order-1", Points: 10})
	serviceNotification.Emit(ctx, &models.NotificationEvent{Type: models.EVENT_POINTS_REDEEMED, UserID: testUser, SellerID: testSeller, OrderID: "order-2", Points: 5})

	delivered, err := serviceNotification.Dispatch(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 2, delivered)

	events := env.Sink.Events()
	require.Len(t, events, 2)
	// delivered oldest first
	require.Equal(t, "order-1", events[0].OrderID)
	require.Equal(t, models.EVENT_POINTS_EARNED, events[0].Type)
	require.NotEmpty(t, events[0].ID)
	require.False(t, events[0].CreatedAt.IsZero())
	require.Equal(t, "order-2", events[1].OrderID)

	length, err := serviceNotification.QueueLength(ctx)
	require.NoError(t, err)
	require.Zero(t, length)
}

func TestNotificationDispatchRequeuesOnFailure(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	serviceNotification := testutil.Invoke[*services.ServiceNotification](t, env)

	serviceNotification.Emit(ctx, &models.NotificationEvent{Type: models.EVENT_POINTS_EARNED, UserID: testUser, SellerID: testSeller, OrderID: "order-1", Points: 10})

	env.Sink.Fail = errors.New("sink down")
	delivered, err := serviceNotification.Dispatch(ctx, 10)
	require.Error(t, err)
	require.Zero(t, delivered)

	length, err := serviceNotification.QueueLength(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), length)
	processing, err := redis_store.CountProcessingNotifications(ctx, env.Redis)
	require.NoError(t, err)
	require.Zero(t, processing)

	env.Sink.Fail = nil
	delivered, err = serviceNotification.Dispatch(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, delivered)
	require.Len(t, env.Sink.Events(), 1)
}

func TestNotificationDispatchDeadLettersRejectedEvent(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	serviceNotification := testutil.Invoke[*services.ServiceNotification](t, env)

	serviceNotification.Emit(ctx, &models.NotificationEvent{Type: models.EVENT_POINTS_EARNED, UserID: testUser, SellerID: testSeller, OrderID: "order-1", Points: 10})

	env.Sink.Fail = fmt.Errorf("%w: responded 400", interfaces.ErrNotificationRejected)
	for i := 1; i < services.NOTIFICATION_MAX_ATTEMPTS; i++ {
		_, err := serviceNotification.Dispatch(ctx, 10)
		require.ErrorIs(t, err, interfaces.ErrNotificationRejected)
	}

	delivered, err := serviceNotification.Dispatch(ctx, 10)
	require.NoError(t, err)
	require.Zero(t, delivered)

	dead, err := redis_store.CountDeadNotifications(ctx, env.Redis)
	require.NoError(t, err)
	require.Equal(t, int64(1), dead)
	length, err := serviceNotification.QueueLength(ctx)
	require.NoError(t, err)
	require.Zero(t, length)

	// later events are not held up by the dead-lettered one
	env.Sink.Fail = nil
	serviceNotification.Emit(ctx, &models.NotificationEvent{Type: models.EVENT_POINTS_EARNED, UserID: testUser, SellerID: testSeller, OrderID: "order-2", Points: 10})
	delivered, err = serviceNotification.Dispatch(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, delivered)
	require.Equal(t, "order-2", env.Sink.Events()[0].OrderID)
}

func TestNotificationDispatchKeepsEventsThroughOutage(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	serviceNotification := testutil.Invoke[*services.ServiceNotification](t, env)

	serviceNotification.Emit(ctx, &models.NotificationEvent{Type: models.EVENT_POINTS_EARNED, UserID: testUser, SellerID: testSeller, OrderID: "order-1", Points: 10})

	env.Sink.Fail = errors.New("sink down")
	for i := 0; i < services.NOTIFICATION_MAX_ATTEMPTS*2; i++ {
		_, err := serviceNotification.Dispatch(ctx, 10)
		require.Error(t, err)
	}

	dead, err := redis_store.CountDeadNotifications(ctx, env.Redis)
	require.NoError(t, err)
	require.Zero(t, dead)

	env.Sink.Fail = nil
	delivered, err := serviceNotification.Dispatch(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, delivered)
}

func TestNotificationRecover(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	serviceNotification := testutil.Invoke[*services.ServiceNotification](t, env)

	serviceNotification.Emit(ctx, &models.NotificationEvent{Type: models.EVENT_POINTS_EARNED, UserID: testUser, SellerID: testSeller, OrderID: "order-1", Points: 10})

	// a dispatcher that claimed the event and died before acking
	_, event, err := redis_store.ClaimNotification(ctx, env.Redis)
	require.NoError(t, err)
	require.Equal(t, "order-1", event.OrderID)

	recovered, err := serviceNotification.Recover(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, recovered)

	delivered, err := serviceNotification.Dispatch(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, delivered)
}

func TestNotificationEmitSurvivesRedisOutage(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	setupProgram(t, env, testSeller)
	serviceEarn := testutil.Invoke[*services.ServiceEarn](t, env)

	// cache and queue share this client
	require.NoError(t, env.Redis.Close())

	result, err := serviceEarn.OnOrderCompleted(ctx, testUser, testSeller, "order-1", 1000000)
	require.NoError(t, err)
	require.Equal(t, int64(34320), result.Points)
}
