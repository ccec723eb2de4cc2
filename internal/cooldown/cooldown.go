// Package cooldown tracks per user, per command cooldowns.
package cooldown

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store reserves cooldown windows.
type Store interface {
	// Reserve starts a cooldown of d for key unless one is active, in which
	// case it returns false and the time left.
	Reserve(ctx context.Context, key string, d time.Duration) (ok bool, remaining time.Duration, err error)
	// Release ends the cooldown of key early.
	Release(ctx context.Context, key string) error
}

// Key builds the cooldown key of a user running a command.
func Key(command, userID string) string {
	return "cooldown:" + command + ":" + userID
}

// RedisStore shares cooldowns across processes with SET NX PX.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Reserve(ctx context.Context, key string, d time.Duration) (bool, time.Duration, error) {
	ok, err := s.client.SetNX(ctx, key, time.Now().UnixMilli(), d).Result()
	if err != nil {
		return false, 0, err
	}
	if ok {
		return true, 0, nil
	}

	remaining, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if remaining < 0 {
		remaining = 0
	}
	return false, remaining, nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// MemoryStore keeps cooldowns in process. Used when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryStore) Reserve(_ context.Context, key string, d time.Duration) (bool, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if until, ok := s.expires[key]; ok && now.Before(until) {
		return false, until.Sub(now), nil
	}

	s.expires[key] = now.Add(d)
	s.sweep(now)
	return true, 0, nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expires, key)
	return nil
}

// sweep drops expired entries once the map grows, so idle users don't accumulate.
func (s *MemoryStore) sweep(now time.Time) {
	if len(s.expires) < 1024 {
		return
	}
	for k, until := range s.expires {
		if !now.Before(until) {
			delete(s.expires, k)
		}
	}
}
