// Package turnlock guarantees at most one in-flight turn per session.
package turnlock

import (
	"context"
	"fmt"
	"sync"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

// Release ends the turn. It is safe to call more than once.
type Release func()

type Locker interface {
	// Acquire returns contract.ErrTurnInFlight when the session already has a
	// turn running. It never waits.
	Acquire(ctx context.Context, sessionID string) (Release, error)
}

// Local is an in-process Locker.
type Local struct {
	mu     sync.Mutex
	active map[string]struct{}
}

var _ Locker = (*Local)(nil)

func NewLocal() *Local {
	return &Local{active: make(map[string]struct{})}
}

func (l *Local) Acquire(_ context.Context, sessionID string) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.active[sessionID]; busy {
		return nil, fmt.Errorf("%w: session %s", contractx.ErrTurnInFlight, sessionID)
	}
	l.active[sessionID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.active, sessionID)
			l.mu.Unlock()
		})
	}, nil
}
