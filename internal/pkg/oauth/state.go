package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	stateKeyPrefix = "auth:state:"
	stateTTL       = 10 * time.Minute
)

var (
	ErrEmptyState   = errors.New("empty state parameter")
	ErrInvalidState = errors.New("invalid or expired state")
)

// StateStore keeps the post-login destination under a one-time state token
type StateStore interface {
	Issue(ctx context.Context, next string) (string, error)
	Consume(ctx context.Context, state string) (string, error)
}

// RedisStateStore states shared by every instance, single use
type RedisStateStore struct {
	rdb *redis.Client
}

func NewRedisStateStore(rdb *redis.Client) *RedisStateStore {
	return &RedisStateStore{rdb: rdb}
}

func newState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random state: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Issue stores next under a fresh random state
func (s *RedisStateStore) Issue(ctx context.Context, next string) (string, error) {
	state, err := newState()
	if err != nil {
		return "", err
	}

	if err := s.rdb.Set(ctx, stateKeyPrefix+state, next, stateTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}

	return state, nil
}

// Consume returns the stored destination and deletes the state so it cannot be replayed
func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrEmptyState
	}

	key := stateKeyPrefix + state

	var next string
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrInvalidState
		}
		if err != nil {
			return fmt.Errorf("failed to get state: %w", err)
		}
		next = val

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return "", err
	}

	return next, nil
}

// MemoryStateStore single-instance fallback when Redis is disabled
type MemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]memoryState
	now     func() time.Time
}

type memoryState struct {
	next      string
	expiresAt time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		entries: make(map[string]memoryState),
		now:     time.Now,
	}
}

func (s *MemoryStateStore) Issue(ctx context.Context, next string) (string, error) {
	state, err := newState()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[state] = memoryState{next: next, expiresAt: now.Add(stateTTL)}

	return state, nil
}

// Consume returns next and forgets the state
func (s *MemoryStateStore) Consume(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrEmptyState
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[state]
	if !ok {
		return "", ErrInvalidState
	}
	delete(s.entries, state)
	if s.now().After(e.expiresAt) {
		return "", ErrInvalidState
	}

	return e.next, nil
}
