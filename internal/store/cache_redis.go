package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces cache entries so the cache can share a Redis
// database with other consumers.
const redisKeyPrefix = "cache:"

// redisCacheStore implements CacheStore on Redis. Expiry is delegated to
// Redis key TTLs, so DeleteExpired is a no-op here.
type redisCacheStore struct {
	client *redis.Client
}

// NewRedisCacheStore returns a CacheStore backed by client. It is selected
// over the Postgres store when REDIS_URL is configured.
func NewRedisCacheStore(client *redis.Client) CacheStore {
	return &redisCacheStore{client: client}
}

func (s *redisCacheStore) Get(ctx context.Context, key string) (*CacheRow, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	ttl, err := s.client.TTL(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis ttl: %w", err)
	}
	if ttl <= 0 {
		// Key without an expiry was not written by us.
		return nil, ErrNotFound
	}

	return &CacheRow{
		Key:       key,
		Data:      json.RawMessage(data),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

func (s *redisCacheStore) Upsert(ctx context.Context, key string, data json.RawMessage, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return s.Delete(ctx, key)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, []byte(data), ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *redisCacheStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *redisCacheStore) DeleteWhere(ctx context.Context, pattern string) error {
	match := redisKeyPrefix + globToRedisMatch(pattern)

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, 200).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *redisCacheStore) DeleteExpired(ctx context.Context, _ time.Time) error {
	// Redis expires keys on its own.
	return nil
}

// globToRedisMatch escapes the Redis pattern metacharacters we do not use
// ("?", "[", "]", "^") so only "*" retains wildcard meaning, matching the
// predicate applied by the other tiers.
func globToRedisMatch(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '?', '[', ']', '^', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
