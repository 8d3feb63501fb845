package clinic

import (
	"context"
	"fmt"
	"sync"
)

// Locker guards the critical section of a single slot. Implementations must not
// block forever; they return an error once ctx is done or their wait budget is spent.
type Locker interface {
	WithSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// LocalLocker is an in-process keyed mutex. Entries are dropped once unused.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*localSlot
}

type localSlot struct {
	sem  chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*localSlot)}
}

func (l *LocalLocker) WithSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &localSlot{sem: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		s.refs--
		if s.refs == 0 {
			delete(l.slots, key)
		}
		l.mu.Unlock()
	}()

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("acquire slot lock: %w", ctx.Err())
	}
	defer func() { <-s.sem }()

	return fn(ctx)
}
