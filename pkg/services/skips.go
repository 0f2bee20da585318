package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Anonymous visitors get no tracking rows; their skip state lives here,
// keyed by the visitor session id, and expires with the session.
type SessionSkipStore interface {
	Skip(ctx context.Context, sessionID string, tourID int64) error
	Skipped(ctx context.Context, sessionID string, tourID int64) (bool, error)
}

const sessionSkipTTL = 12 * time.Hour

// RedisSkipStore keeps session skip state in Redis so it survives process
// restarts and is shared across instances.
type RedisSkipStore struct {
	client *redis.Client
}

// NewRedisSkipStore creates a Redis-backed session skip store.
func NewRedisSkipStore(client *redis.Client) *RedisSkipStore {
	return &RedisSkipStore{client: client}
}

func skipKey(sessionID string) string {
	return "guidepost:session_skips:" + sessionID
}

func (s *RedisSkipStore) Skip(ctx context.Context, sessionID string, tourID int64) error {
	key := skipKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, tourID)
	pipe.Expire(ctx, key, sessionSkipTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record session skip: %w", err)
	}
	return nil
}

func (s *RedisSkipStore) Skipped(ctx context.Context, sessionID string, tourID int64) (bool, error) {
	skipped, err := s.client.SIsMember(ctx, skipKey(sessionID), tourID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session skip: %w", err)
	}
	return skipped, nil
}

// MemorySkipStore is the process-local fallback when Redis is not
// configured. Entries expire lazily on read.
type MemorySkipStore struct {
	mu    sync.Mutex
	skips map[string]map[int64]time.Time
}

// NewMemorySkipStore creates an in-memory session skip store.
func NewMemorySkipStore() *MemorySkipStore {
	return &MemorySkipStore{skips: make(map[string]map[int64]time.Time)}
}

func (s *MemorySkipStore) Skip(_ context.Context, sessionID string, tourID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tours, ok := s.skips[sessionID]
	if !ok {
		tours = make(map[int64]time.Time)
		s.skips[sessionID] = tours
	}
	tours[tourID] = time.Now().Add(sessionSkipTTL)
	return nil
}

func (s *MemorySkipStore) Skipped(_ context.Context, sessionID string, tourID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tours, ok := s.skips[sessionID]
	if !ok {
		return false, nil
	}
	expiry, ok := tours[tourID]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(tours, tourID)
		return false, nil
	}
	return true, nil
}

var (
	_ SessionSkipStore = (*RedisSkipStore)(nil)
	_ SessionSkipStore = (*MemorySkipStore)(nil)
)
