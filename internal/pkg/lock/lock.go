package lock

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "lock:"

// ErrHeld another worker holds the lock
var ErrHeld = errors.New("lock held elsewhere")

// Locker hands out short-lived exclusive locks by key
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// RedisLocker Locker backed by a redsync mutex
type RedisLocker struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

// NewRedisLocker locks expire after expiry even if never released
func NewRedisLocker(rdb *redis.Client, expiry time.Duration) *RedisLocker {
	if expiry <= 0 {
		expiry = 30 * time.Second
	}
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(rdb)),
		expiry: expiry,
	}
}

// Acquire tries once; a held lock yields ErrHeld
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(keyPrefix+key, redsync.WithExpiry(l.expiry), redsync.WithTries(1))

	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.As(err, &taken) || errors.Is(err, redsync.ErrFailed) {
			return nil, ErrHeld
		}
		return nil, err
	}

	return func() {
		if ok, err := mutex.UnlockContext(context.Background()); !ok || err != nil {
			log.Warn().Err(err).Str("key", key).Msg("lock: release failed")
		}
	}, nil
}
