package services

import (
	"context"
	"sync"
)

// sessionLocks serializes operations per session. Entries are dropped when unused.
type sessionLocks struct {
	mu sync.Mutex
	m  map[string]*sessionLock
}

type sessionLock struct {
	ch   chan struct{}
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{m: make(map[string]*sessionLock)}
}

func (l *sessionLocks) acquire(ctx context.Context, sessionID string) (release func(), err error) {
	l.mu.Lock()
	e, ok := l.m[sessionID]
	if !ok {
		e = &sessionLock{ch: make(chan struct{}, 1)}
		l.m[sessionID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.ch
				l.drop(sessionID, e)
			})
		}, nil
	case <-ctx.Done():
		l.drop(sessionID, e)
		return nil, ctx.Err()
	}
}

func (l *sessionLocks) drop(sessionID string, e *sessionLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.m, sessionID)
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
