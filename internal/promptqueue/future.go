package promptqueue

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Future is the pending result of a call to Queue.Ask.
// It settles exactly once and is safe for concurrent use.
type Future struct {
	id   string
	done chan struct{}
	once sync.Once

	// Written before done is closed, read only after.
	outcome Outcome
	reason  Reason
}

func newFuture() *Future {
	return &Future{
		id:   uuid.New().String(),
		done: make(chan struct{}),
	}
}

// settle records the result and releases waiters.
// It returns false if the future had already settled.
func (f *Future) settle(outcome Outcome, reason Reason) bool {
	settled := false
	f.once.Do(func() {
		f.outcome = outcome
		f.reason = reason
		close(f.done)
		settled = true
	})
	return settled
}

// ID returns the request identifier, also carried by Prompt.ID.
func (f *Future) ID() string {
	return f.id
}

// Done returns a channel that is closed once the future has settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future settles or ctx is done.
// Giving up on the wait does not withdraw the request from the queue.
func (f *Future) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-f.done:
		return f.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Outcome returns the result without blocking.
// The boolean is false while the future is still pending.
func (f *Future) Outcome() (Outcome, bool) {
	select {
	case <-f.done:
		return f.outcome, true
	default:
		return Outcome{}, false
	}
}

// Reason returns how the future settled, or "" while it is pending.
func (f *Future) Reason() Reason {
	select {
	case <-f.done:
		return f.reason
	default:
		return ""
	}
}
