package redis_store

import (
	"context"

	"rewards/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// The notification keys share the {notification} hash tag so LMOVE and MULTI stay in one cluster slot.
func dbKeyNotificationQueue() string {
	return "{notification}:queue"
}

func dbKeyNotificationProcessing() string {
	return "{notification}:processing"
}

func dbKeyNotificationDead() string {
	return "{notification}:dead"
}

func PushNotification(ctx context.Context, cmd redis.Cmdable, event *models.NotificationEvent) error {
	b, err := msgpack.Marshal(event)
	if err != nil {
		return err
	}

	return cmd.LPush(ctx, dbKeyNotificationQueue(), b).Err()
}

// ClaimNotification moves the oldest queued event to the processing list.
// It returns redis.Nil when the queue is empty.
func ClaimNotification(ctx context.Context, cmd redis.Cmdable) ([]byte, *models.NotificationEvent, error) {
	b, err := cmd.LMove(ctx, dbKeyNotificationQueue(), dbKeyNotificationProcessing(), "RIGHT", "LEFT").Bytes()
	if err != nil {
		return nil, nil, err
	}

	var v models.NotificationEvent
	err = msgpack.Unmarshal(b, &v)
	if err != nil {
		return b, nil, err
	}

	return b, &v, nil
}

func AckNotification(ctx context.Context, cmd redis.Cmdable, raw []byte) error {
	return cmd.LRem(ctx, dbKeyNotificationProcessing(), 1, raw).Err()
}

// RequeueNotification swaps the in-flight payload raw for event, re-encoded with its new attempt count.
func RequeueNotification(ctx context.Context, client redis.UniversalClient, raw []byte, event *models.NotificationEvent) error {
	b, err := msgpack.Marshal(event)
	if err != nil {
		return err
	}

	_, err = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, dbKeyNotificationProcessing(), 1, raw)
		pipe.LPush(ctx, dbKeyNotificationQueue(), b)
		return nil
	})
	return err
}

// DeadLetterNotification parks an event the sink keeps refusing.
func DeadLetterNotification(ctx context.Context, client redis.UniversalClient, raw []byte, event *models.NotificationEvent) error {
	b, err := msgpack.Marshal(event)
	if err != nil {
		return err
	}

	_, err = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, dbKeyNotificationProcessing(), 1, raw)
		pipe.LPush(ctx, dbKeyNotificationDead(), b)
		return nil
	})
	return err
}

// RecoverNotifications puts events left in processing by a crashed dispatcher back on the queue.
func RecoverNotifications(ctx context.Context, cmd redis.Cmdable) (int, error) {
	count := 0
	for {
		err := cmd.LMove(ctx, dbKeyNotificationProcessing(), dbKeyNotificationQueue(), "RIGHT", "RIGHT").Err()
		if err == redis.Nil {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		count++
	}
}

func CountQueuedNotifications(ctx context.Context, cmd redis.Cmdable) (int64, error) {
	return cmd.LLen(ctx, dbKeyNotificationQueue()).Result()
}

func CountProcessingNotifications(ctx context.Context, cmd redis.Cmdable) (int64, error) {
	return cmd.LLen(ctx, dbKeyNotificationProcessing()).Result()
}

func CountDeadNotifications(ctx context.Context, cmd redis.Cmdable) (int64, error) {
	return cmd.LLen(ctx, dbKeyNotificationDead()).Result()
}
