package persistence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const deliveryKeyPrefix = "webhook:delivery:"

// RedisDeliveryLog remembers completed webhook delivery ids so replays can be
// acknowledged without reprocessing.
type RedisDeliveryLog struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeliveryLog builds the log. TTL bounds how long delivery ids are kept.
func NewRedisDeliveryLog(client *redis.Client, ttl time.Duration) *RedisDeliveryLog {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeliveryLog{client: client, ttl: ttl}
}

// Seen reports whether the delivery id has already completed processing.
func (l *RedisDeliveryLog) Seen(ctx context.Context, deliveryID string) (bool, error) {
	n, err := l.client.Exists(ctx, deliveryKeyPrefix+deliveryID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Record marks the delivery id as completed.
func (l *RedisDeliveryLog) Record(ctx context.Context, deliveryID string) error {
	return l.client.Set(ctx, deliveryKeyPrefix+deliveryID, 1, l.ttl).Err()
}
