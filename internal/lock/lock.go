// Package lock provides the single-writer guard used while the asset pool
// grows.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotAcquired is returned when a lock could not be obtained before the
// context ended.
var ErrNotAcquired = errors.New("lock not acquired")

// ReleaseFunc releases a held lock.
type ReleaseFunc func(ctx context.Context) error

// Locker grants exclusive ownership of a named key.
type Locker interface {
	// Acquire blocks until key is held or ctx ends. ttl bounds how long a
	// crashed holder can keep the lock where the backend supports expiry.
	Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}

// Local is an in-process Locker.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

func (l *Local) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// Acquire blocks until key is free. ttl is ignored.
func (l *Local) Acquire(ctx context.Context, key string, _ time.Duration) (ReleaseFunc, error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, errors.Join(ErrNotAcquired, ctx.Err())
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-ch })
		return nil
	}, nil
}
