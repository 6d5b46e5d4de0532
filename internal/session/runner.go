package session

import (
	"context"
	"sync"
)

// Runner owns the session state and handles one request at a time.
// State reads never wait for a request in flight.
type Runner struct {
	mu      sync.Mutex
	session *Session

	stateMu sync.RWMutex
	state   State
}

func NewRunner(s *Session, initial State) *Runner {
	return &Runner{session: s, state: initial}
}

// Do handles req and keeps the resulting state.
func (r *Runner) Do(ctx context.Context, req Request) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, res, err := r.session.Handle(ctx, r.State(), req)
	r.stateMu.Lock()
	r.state = next
	r.stateMu.Unlock()
	return res, err
}

// State returns the state left by the last completed request.
func (r *Runner) State() State {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.state
}

func (r *Runner) Session() *Session { return r.session }
