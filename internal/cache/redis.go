package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/phrazzld/tasklog/internal/config"
	"github.com/redis/go-redis/v9"
)

const scanBatchSize = 100

// NewRedisClient builds a go-redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Stats counts backend operations.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Sets    uint64 `json:"sets"`
	Deletes uint64 `json:"deletes"`
	Errors  uint64 `json:"errors"`
}

// RedisStore implements Store on Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
	stats  Stats
}

// NewRedisStore wraps client. Every key is stored under prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

var _ Store = (*RedisStore)(nil)

// Get implements Store.Get.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			atomic.AddUint64(&s.stats.Misses, 1)
			return nil, false, nil
		}
		atomic.AddUint64(&s.stats.Errors, 1)
		return nil, false, unavailable("get", err)
	}

	atomic.AddUint64(&s.stats.Hits, 1)
	return data, true, nil
}

// Set implements Store.Set.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		atomic.AddUint64(&s.stats.Errors, 1)
		return unavailable("set", err)
	}

	atomic.AddUint64(&s.stats.Sets, 1)
	return nil
}

// Incr implements Store.Incr.
func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, s.prefix+key).Result()
	if err != nil {
		atomic.AddUint64(&s.stats.Errors, 1)
		return 0, unavailable("incr", err)
	}
	return n, nil
}

// GetInt implements Store.GetInt.
func (s *RedisStore) GetInt(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Get(ctx, s.prefix+key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		atomic.AddUint64(&s.stats.Errors, 1)
		return 0, unavailable("get counter", err)
	}
	return n, nil
}

// DeletePattern implements Store.DeletePattern using SCAN so the server is
// never blocked by KEYS.
func (s *RedisStore) DeletePattern(ctx context.Context, pattern string) (int, error) {
	fullPattern := s.prefix + pattern

	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, fullPattern, scanBatchSize).Result()
		if err != nil {
			atomic.AddUint64(&s.stats.Errors, 1)
			return deleted, unavailable("scan", err)
		}

		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				atomic.AddUint64(&s.stats.Errors, 1)
				return deleted, unavailable("delete", err)
			}
			deleted += int(n)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	atomic.AddUint64(&s.stats.Deletes, uint64(deleted))
	return deleted, nil
}

// Ping implements Store.Ping.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close implements Store.Close.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Stats returns a copy of the operation counters.
func (s *RedisStore) Stats() Stats {
	return Stats{
		Hits:    atomic.LoadUint64(&s.stats.Hits),
		Misses:  atomic.LoadUint64(&s.stats.Misses),
		Sets:    atomic.LoadUint64(&s.stats.Sets),
		Deletes: atomic.LoadUint64(&s.stats.Deletes),
		Errors:  atomic.LoadUint64(&s.stats.Errors),
	}
}
