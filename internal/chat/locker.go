package chat

import (
	"context"
	"sync"
)

// Locker serializes turns on the same session. Lock blocks until the
// session is free or ctx is done; the returned func releases it.
type Locker interface {
	Lock(ctx context.Context, sessionID int64) (unlock func(), err error)
}

// LocalLocker is an in-process Locker keyed by session id.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[int64]*sessionLock
}

type sessionLock struct {
	sem  chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[int64]*sessionLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, sessionID int64) (func(), error) {
	l.mu.Lock()
	sl, ok := l.locks[sessionID]
	if !ok {
		sl = &sessionLock{sem: make(chan struct{}, 1)}
		l.locks[sessionID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	select {
	case sl.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(sessionID, sl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-sl.sem
			l.release(sessionID, sl)
		})
	}, nil
}

func (l *LocalLocker) release(sessionID int64, sl *sessionLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(l.locks, sessionID)
	}
}

// held reports how many sessions have waiters or holders.
func (l *LocalLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
