package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis. It lets several machines
// share the same set of named sessions.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for all session keys (default: "docchat:session:").
	Prefix string
	// SessionTTL is the session expiry duration (0 = never expire).
	SessionTTL time.Duration
}

// NewRedisStore creates a Redis session store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newRedisStore(client, cfg.Prefix, cfg.SessionTTL), nil
}

// NewRedisStoreFromClient creates a Redis store from an existing client.
// This is useful for testing with miniredis.
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return newRedisStore(client, prefix, ttl)
}

func newRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "docchat:session:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) recordKey(name string) string {
	return s.prefix + "record:" + name
}

func (s *RedisStore) namesKey() string {
	return s.prefix + "names"
}

func (s *RedisStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStorageClosed
	}
	return nil
}

// Load retrieves a session by name.
func (s *RedisStore) Load(ctx context.Context, name string) (*Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.recordKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return DefaultRecord(), nil
		}
		return nil, fmt.Errorf("load session %s: %w", name, err)
	}

	return decodeRecord(name, data), nil
}

// Save creates or fully overwrites a session.
func (s *RedisStore) Save(ctx context.Context, name string, rec *Record) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.recordKey(name), data, s.ttl)
	pipe.SAdd(ctx, s.namesKey(), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a session has been saved.
func (s *RedisStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	if err := validateName(name); err != nil {
		return false, err
	}

	n, err := s.client.Exists(ctx, s.recordKey(name)).Result()
	if err != nil {
		return false, fmt.Errorf("check session %s: %w", name, err)
	}
	return n > 0, nil
}

// List returns all session names in lexicographic order.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	names, err := s.client.SMembers(ctx, s.namesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// Delete removes a session. Reports whether it existed.
func (s *RedisStore) Delete(ctx context.Context, name string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	if err := validateName(name); err != nil {
		return false, err
	}

	pipe := s.client.Pipeline()
	del := pipe.Del(ctx, s.recordKey(name))
	pipe.SRem(ctx, s.namesKey(), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("delete session %s: %w", name, err)
	}
	return del.Val() > 0, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}
