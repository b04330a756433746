package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates the session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Config configures a Store.
type Config struct {
	Client           *redis.Client
	Prefix           string
	TTL              time.Duration
	LockTTL          time.Duration
	LockRetryBackoff time.Duration
}

// Store keeps session documents as JSON in Redis. Every save refreshes the TTL.
type Store struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	lockTTL time.Duration
	locker  Locker
}

// NewStore constructs a Store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, errors.New("session: redis client is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 5 * time.Second
	}
	return &Store{
		client:  cfg.Client,
		prefix:  cfg.Prefix,
		ttl:     ttl,
		lockTTL: lockTTL,
		locker:  Locker{R: cfg.Client, RetryBackoff: cfg.LockRetryBackoff},
	}, nil
}

// Key returns the Redis key holding a session document.
func (s *Store) Key(kind, id string) string {
	return s.prefix + kind + ":" + id
}

func (s *Store) lockKey(kind, id string) string {
	return s.Key(kind, id) + ":lock"
}

// getJSON reports whether the key existed.
func (s *Store) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("session: decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", key, err)
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

// Create stores v under a new session id and returns the id.
func Create[T any](ctx context.Context, s *Store, kind string, v *T) (string, error) {
	id := uuid.NewString()
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("session: encode %s: %w", kind, err)
	}
	ok, err := s.client.SetNX(ctx, s.Key(kind, id), data, s.ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("session: id collision for %s", kind)
	}
	return id, nil
}

// Load decodes the session document into a new T.
func Load[T any](ctx context.Context, s *Store, kind, id string) (*T, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, ErrNotFound
	}
	v := new(T)
	found, err := s.getJSON(ctx, s.Key(kind, id), v)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return v, nil
}

// Update loads the session, applies fn and saves the result while holding
// the session lock. Nothing is saved when fn returns an error.
func Update[T any](ctx context.Context, s *Store, kind, id string, fn func(*T) error) (*T, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, ErrNotFound
	}
	var out *T
	err := s.locker.WithLock(ctx, s.lockKey(kind, id), s.lockTTL, func(ctx context.Context) error {
		v, err := Load[T](ctx, s, kind, id)
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
		if err := s.setJSON(ctx, s.Key(kind, id), v); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a session. It waits for a running Update on the same
// session to finish. Missing sessions are ignored.
func (s *Store) Delete(ctx context.Context, kind, id string) error {
	id, ok := canonicalID(id)
	if !ok {
		return nil
	}
	return s.locker.WithLock(ctx, s.lockKey(kind, id), s.lockTTL, func(ctx context.Context) error {
		return s.client.Del(ctx, s.Key(kind, id)).Err()
	})
}

func canonicalID(id string) (string, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}
