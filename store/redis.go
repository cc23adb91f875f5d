// Package store provides persistent MemoryStore backends. The default
// in-memory store loses sessions on restart; point REDIS_ADDR at a Redis
// instance to keep conversation history across launches.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	instructagent "github.com/instructware/instruct-agent-go"
)

// DefaultPrefix namespaces all keys written by this module.
const DefaultPrefix = "instruct"

// Config configures the Redis-backed store.
type Config struct {
	// Addr is the Redis host:port, e.g. "localhost:6379".
	Addr string
	// Prefix namespaces keys; defaults to DefaultPrefix.
	Prefix string
	// TTL expires session data after the given duration. Zero means no expiry.
	TTL time.Duration
}

// RedisMemoryStore implements instructagent.MemoryStore on Redis.
// Keys are laid out as "{prefix}:{namespace}:{key}" for KV entries and
// "{prefix}:{namespace}:list:{key}" for lists.
type RedisMemoryStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	ctx    context.Context
}

var _ instructagent.MemoryStore = (*RedisMemoryStore)(nil)

// Open connects to Redis at cfg.Addr and verifies the connection.
func Open(ctx context.Context, cfg Config) (*RedisMemoryStore, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return NewRedisMemoryStore(client, cfg), nil
}

// NewRedisMemoryStore wraps an existing client. The client may be a
// *redis.Client, ClusterClient, or Ring.
func NewRedisMemoryStore(client redis.UniversalClient, cfg Config) *RedisMemoryStore {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisMemoryStore{
		client: client,
		prefix: prefix,
		ttl:    cfg.TTL,
		ctx:    context.Background(),
	}
}

func (s *RedisMemoryStore) kvKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, namespace, key)
}

func (s *RedisMemoryStore) listKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s:list:%s", s.prefix, namespace, key)
}

func (s *RedisMemoryStore) Get(namespace, key string) (string, error) {
	val, err := s.client.Get(s.ctx, s.kvKey(namespace, key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisMemoryStore) Set(namespace, key, value string) error {
	if err := s.client.Set(s.ctx, s.kvKey(namespace, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisMemoryStore) Delete(namespace, key string) error {
	if err := s.client.Del(s.ctx, s.kvKey(namespace, key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// ListKeys returns the bare key names of both KV and list entries in the
// namespace, with layout prefixes stripped.
func (s *RedisMemoryStore) ListKeys(namespace string) ([]string, error) {
	pattern := s.kvKey(namespace, "*")
	raw, err := s.client.Keys(s.ctx, pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("redis keys %s: %w", pattern, err)
	}
	kvBase := s.kvKey(namespace, "")
	listBase := s.listKey(namespace, "")
	seen := make(map[string]bool, len(raw))
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		name := strings.TrimPrefix(k, kvBase)
		if strings.HasPrefix(k, listBase) {
			name = strings.TrimPrefix(k, listBase)
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		keys = append(keys, name)
	}
	return keys, nil
}

func (s *RedisMemoryStore) Append(namespace, key, value string) error {
	k := s.listKey(namespace, key)
	if err := s.client.RPush(s.ctx, k, value).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", key, err)
	}
	if s.ttl > 0 {
		s.client.Expire(s.ctx, k, s.ttl)
	}
	return nil
}

func (s *RedisMemoryStore) GetList(namespace, key string, limit, offset int) ([]string, error) {
	start := int64(offset)
	stop := int64(-1)
	if limit > 0 {
		stop = start + int64(limit) - 1
	}
	items, err := s.client.LRange(s.ctx, s.listKey(namespace, key), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange %s: %w", key, err)
	}
	return items, nil
}

func (s *RedisMemoryStore) TrimList(namespace, key string, maxSize int) error {
	k := s.listKey(namespace, key)
	if maxSize <= 0 {
		if err := s.client.Del(s.ctx, k).Err(); err != nil {
			return fmt.Errorf("redis del %s: %w", key, err)
		}
		return nil
	}
	// Keep the newest maxSize entries.
	if err := s.client.LTrim(s.ctx, k, int64(-maxSize), -1).Err(); err != nil {
		return fmt.Errorf("redis ltrim %s: %w", key, err)
	}
	return nil
}

func (s *RedisMemoryStore) ClearList(namespace, key string) error {
	if err := s.client.Del(s.ctx, s.listKey(namespace, key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *RedisMemoryStore) ListLength(namespace, key string) (int, error) {
	n, err := s.client.LLen(s.ctx, s.listKey(namespace, key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen %s: %w", key, err)
	}
	return int(n), nil
}

// Close releases the underlying client connection.
func (s *RedisMemoryStore) Close() error {
	return s.client.Close()
}
