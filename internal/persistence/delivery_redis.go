package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisDeliveryStore implements the cold tier of the engine's delivery guard
// on Redis. Keys carry a TTL: a redelivery that arrives after the TTL has
// passed (and after LRU eviction) is treated as new, which only costs a
// duplicate audit row, never a double-applied transaction; tx-id replay is
// still caught by the state machine.
type RedisDeliveryStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeliveryStore(client *redis.Client, ttl time.Duration) *RedisDeliveryStore {
	return &RedisDeliveryStore{client: client, ttl: ttl}
}

func (s *RedisDeliveryStore) key(eventType, deliveryKey string) string {
	return fmt.Sprintf("pay:dedup:%s:%s", eventType, deliveryKey)
}

// IsDuplicate checks whether a delivery key was already recorded.
func (s *RedisDeliveryStore) IsDuplicate(eventType string, deliveryKey string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	n, err := s.client.Exists(ctx, s.key(eventType, deliveryKey)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkProcessed records a delivery key with the configured TTL.
func (s *RedisDeliveryStore) MarkProcessed(eventType string, deliveryKey string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	return s.client.Set(ctx, s.key(eventType, deliveryKey), 1, s.ttl).Err()
}
