package presence

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"chat-core/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/samber/lo"
)

const keyPrefix = "presence:user:"

// RedisTracker keeps presence entries as Redis keys with a TTL. SET with an
// expiry is a single atomic operation, so concurrent heartbeats cannot lose
// each other's renewal; Redis expires entries on its own once the TTL lapses.
type RedisTracker struct {
	client  *redis.Client
	timeout time.Duration
}

func NewRedisTracker(addr string, timeout time.Duration) (*RedisTracker, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis at %s", addr)
	return &RedisTracker{client: client, timeout: timeout}, nil
}

func presenceKey(userID int) string {
	return keyPrefix + strconv.Itoa(userID)
}

func (t *RedisTracker) Heartbeat(ctx context.Context, userID int) error {
	return t.client.Set(ctx, presenceKey(userID), "online", t.timeout).Err()
}

func (t *RedisTracker) SetOffline(ctx context.Context, userID int) error {
	return t.client.Del(ctx, presenceKey(userID)).Err()
}

func (t *RedisTracker) IsOnline(ctx context.Context, userID int) (bool, error) {
	n, err := t.client.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *RedisTracker) ListOnline(ctx context.Context) ([]int, error) {
	var keys []string
	iter := t.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	ids := lo.FilterMap(keys, func(key string, _ int) (int, bool) {
		id, err := strconv.Atoi(strings.TrimPrefix(key, keyPrefix))
		return id, err == nil
	})
	sort.Ints(ids)
	return ids, nil
}

func (t *RedisTracker) Close() error {
	return t.client.Close()
}
