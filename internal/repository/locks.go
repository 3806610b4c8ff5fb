package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrLockTimeout is returned when a slot lock cannot be acquired in time.
var ErrLockTimeout = errors.New("timed out waiting for slot lock")

// LocalSlotLocker serializes slot approvals within one process.
type LocalSlotLocker struct {
	mu    sync.Mutex
	slots map[string]*slotLock
}

type slotLock struct {
	ch      chan struct{}
	waiters int
}

// NewLocalSlotLocker creates a LocalSlotLocker.
func NewLocalSlotLocker() *LocalSlotLocker {
	return &LocalSlotLocker{slots: make(map[string]*slotLock)}
}

// Lock blocks until key is free or ctx is done.
func (l *LocalSlotLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.slots[key]
	if !ok {
		lock = &slotLock{ch: make(chan struct{}, 1)}
		l.slots[key] = lock
	}
	lock.waiters++
	l.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		l.done(key, lock)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lock.ch
			l.done(key, lock)
		})
	}, nil
}

// done drops the bookkeeping for key once nobody holds or awaits it.
func (l *LocalSlotLocker) done(key string, lock *slotLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.waiters--
	if lock.waiters == 0 {
		delete(l.slots, key)
	}
}

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSlotLocker serializes slot approvals across server instances with a
// SET NX PX lock. The TTL bounds how long a crashed holder blocks the slot.
type RedisSlotLocker struct {
	client redis.Cmdable
	ttl    time.Duration
	retry  time.Duration
	log    *logrus.Logger
}

// NewRedisSlotLocker creates a RedisSlotLocker.
func NewRedisSlotLocker(client redis.Cmdable, ttl time.Duration, log *logrus.Logger) *RedisSlotLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisSlotLocker{client: client, ttl: ttl, retry: 50 * time.Millisecond, log: log}
}

func lockKey(key string) string {
	return "appointments:slot-lock:" + key
}

// Lock polls until the lock is acquired, ctx is done, or one TTL has passed.
func (l *RedisSlotLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	redisKey := lockKey(key)
	deadline := time.Now().Add(l.ttl)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire slot lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	return func() {
		// The request context may already be cancelled; release regardless.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
			l.log.WithError(err).WithField("slot", key).Warn("Releasing slot lock failed")
		}
	}, nil
}
