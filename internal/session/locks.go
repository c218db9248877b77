package session

import (
	"context"
	"sync"
)

// sessionLocks serializes events per session id. Entries are reference counted
// and removed once no event for the id is in progress.
type sessionLocks struct {
	mu     sync.Mutex              // protects active
	active map[string]*sessionLock // id -> lock held or awaited by events for that id
}

type sessionLock struct {
	ch   chan struct{} // capacity 1; holding the token means holding the lock
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{
		active: make(map[string]*sessionLock),
	}
}

// Acquire blocks until the lock for id is held or ctx is done. The returned
// release func must be called exactly once after a nil error.
func (sl *sessionLocks) Acquire(ctx context.Context, id string) (func(), error) {
	sl.mu.Lock()
	l, ok := sl.active[id]
	if !ok {
		l = &sessionLock{ch: make(chan struct{}, 1)}
		sl.active[id] = l
	}
	l.refs++
	sl.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			sl.done(id, l)
		}, nil
	case <-ctx.Done():
		sl.done(id, l)
		return nil, ctx.Err()
	}
}

func (sl *sessionLocks) done(id string, l *sessionLock) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(sl.active, id)
	}
}

// Active returns the number of ids with an event in progress or waiting.
func (sl *sessionLocks) Active() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return len(sl.active)
}
