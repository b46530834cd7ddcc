package redis_store

import (
	"context"
	"strings"
	"testing"

	"rewards/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestNotificationQueue(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	_, _, err := ClaimNotification(ctx, client)
	require.ErrorIs(t, err, redis.Nil)

	require.NoError(t, PushNotification(ctx, client, &models.NotificationEvent{ID: "1", OrderID: "order-1"}))
	require.NoError(t, PushNotification(ctx, client, &models.NotificationEvent{ID: "2", OrderID: "order-2"}))

	raw, event, err := ClaimNotification(ctx, client)
	require.NoError(t, err)
	require.Equal(t, "order-1", event.OrderID)

	processing, err := CountProcessingNotifications(ctx, client)
	require.NoError(t, err)
	require.Equal(t, int64(1), processing)

	event.Attempts++
	require.NoError(t, RequeueNotification(ctx, client, raw, event))
	processing, err = CountProcessingNotifications(ctx, client)
	require.NoError(t, err)
	require.Zero(t, processing)
	queued, err := CountQueuedNotifications(ctx, client)
	require.NoError(t, err)
	require.Equal(t, int64(2), queued)

	// requeued events go to the back of the line
	_, event, err = ClaimNotification(ctx, client)
	require.NoError(t, err)
	require.Equal(t, "order-2", event.OrderID)

	raw, event, err = ClaimNotification(ctx, client)
	require.NoError(t, err)
	require.Equal(t, "order-1", event.OrderID)
	require.Equal(t, 1, event.Attempts)
	require.NoError(t, AckNotification(ctx, client, raw))

	recovered, err := RecoverNotifications(ctx, client)
	require.NoError(t, err)
	require.Equal(t, 1, recovered)

	_, event, err = ClaimNotification(ctx, client)
	require.NoError(t, err)
	require.Equal(t, "order-2", event.OrderID)
}

func TestNotificationDeadLetter(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, PushNotification(ctx, client, &models.NotificationEvent{ID: "1", OrderID: "order-1"}))
	raw, event, err := ClaimNotification(ctx, client)
	require.NoError(t, err)

	require.NoError(t, DeadLetterNotification(ctx, client, raw, event))

	dead, err := CountDeadNotifications(ctx, client)
	require.NoError(t, err)
	require.Equal(t, int64(1), dead)

	processing, err := CountProcessingNotifications(ctx, client)
	require.NoError(t, err)
	require.Zero(t, processing)

	recovered, err := RecoverNotifications(ctx, client)
	require.NoError(t, err)
	require.Zero(t, recovered)
}

func TestNotificationKeysShareSlot(t *testing.T) {
	for _, key := range []string{dbKeyNotificationQueue(), dbKeyNotificationProcessing(), dbKeyNotificationDead()} {
		require.True(t, strings.HasPrefix(key, "{notification}:"), key)
	}
}
