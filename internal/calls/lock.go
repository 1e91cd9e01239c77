package calls

import (
	"context"
	"errors"
	"sync"
	"time"

	"pbx-connector/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes event handling per call id.
// Events for different call ids never wait on each other.
type Locker interface {
	Lock(ctx context.Context, callID string) (unlock func(), err error)
}

// KeyedLocker is an in-process Locker. Entries are dropped once nobody holds or waits on them.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: map[string]*keyedEntry{}}
}

func (l *KeyedLocker) Lock(ctx context.Context, callID string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[callID]
	if !ok {
		e = &keyedEntry{sem: make(chan struct{}, 1)}
		l.locks[callID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(callID, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(callID, e)
		})
	}, nil
}

func (l *KeyedLocker) release(callID string, e *keyedEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, callID)
	}
}

var ErrLockTimeout = errors.New("calls: timed out waiting for call lock")

// RedisLocker serializes events for a call id across processes.
//
// The lock expires after TTL so a crashed holder cannot block a call forever.
// Release is token-checked so an expired holder never frees someone else's lock.
type RedisLocker struct {
	Client *redis.Client
	Prefix string

	TTL          time.Duration
	MaxWait      time.Duration
	PollInterval time.Duration
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{
		Client:       rdb,
		Prefix:       "pbx:call-lock:",
		TTL:          10 * time.Second,
		MaxWait:      3 * time.Second,
		PollInterval: 25 * time.Millisecond,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, callID string) (func(), error) {
	key := l.Prefix + callID
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.MaxWait)
	defer cancel()

	ticker := time.NewTicker(l.PollInterval)
	defer ticker.Stop()
	for {
		ok, err := utils.AcquireLock(waitCtx, l.Client, key, token, l.TTL)
		if err != nil {
			if waitCtx.Err() != nil && ctx.Err() == nil {
				return nil, ErrLockTimeout
			}
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}

	return func() {
		// Release even if the request context is already canceled.
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_, _ = utils.ReleaseLock(relCtx, l.Client, key, token)
	}, nil
}
