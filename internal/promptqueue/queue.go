package promptqueue

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inercia/promptq/internal/logging"
)

var (
	// ErrInvalidMaxQueueSize is returned by New when the maximum queue size is not positive.
	ErrInvalidMaxQueueSize = errors.New("maximum queue size must be positive")
	// ErrNilPresenter is returned by New when no presenter is given.
	ErrNilPresenter = errors.New("presenter is nil")
)

// Presenter displays one prompt at a time.
type Presenter interface {
	// Present shows the prompt and returns without waiting for the user.
	// onComplete must be called exactly once, with the selected action ID or
	// "" when the prompt was dismissed without a selection.
	Present(p Prompt, onComplete func(actionID string))
	// Dismiss tears down whatever is currently presented. It is a no-op when
	// nothing is shown.
	Dismiss()
}

// Queue presents prompts one at a time in admission order.
// It is safe for concurrent use.
type Queue struct {
	presenter       Presenter
	maxQueueSize    int
	overflowMessage string
	defaultMessage  string
	logger          *slog.Logger
	observer        Observer

	// mu guards store, waiting and closed.
	mu      sync.Mutex
	store   store
	waiting []*record
	closed  bool

	// presentMu serializes presenter calls between the worker, CancelAll and
	// Close, so a cancel cannot land between deciding to present and presenting.
	presentMu sync.Mutex

	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// New creates a queue that presents prompts through presenter and starts its
// worker. Call Close to stop it.
func New(presenter Presenter, opts ...Option) (*Queue, error) {
	if presenter == nil {
		return nil, ErrNilPresenter
	}

	o := options{
		maxQueueSize:    DefaultMaxQueueSize,
		overflowMessage: DefaultOverflowMessage,
		defaultMessage:  DefaultMessage,
		observer:        noopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxQueueSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxQueueSize, o.maxQueueSize)
	}
	if o.logger == nil {
		o.logger = logging.Queue()
	}

	q := &Queue{
		presenter:       presenter,
		maxQueueSize:    o.maxQueueSize,
		overflowMessage: o.overflowMessage,
		defaultMessage:  o.defaultMessage,
		logger:          o.logger,
		observer:        o.observer,
		wake:            make(chan struct{}, 1),
		done:            make(chan struct{}),
		stopped:         make(chan struct{}),
	}
	go q.run()
	return q, nil
}

// MaxQueueSize returns the configured backlog limit.
func (q *Queue) MaxQueueSize() int {
	return q.maxQueueSize
}

// Ask submits a prompt and returns a future for the user's decision.
//
// Admission is decided synchronously: when the backlog has reached the
// maximum, the request becomes the overflow notice if none has been shown in
// the current episode; otherwise it is dropped and the returned future has
// already settled with no outcome.
func (q *Queue) Ask(p Prompt) *Future {
	f := newFuture()
	if p.Message == "" {
		p.Message = q.defaultMessage
	}
	if p.Type == "" {
		p.Type = MessageTypeDefault
	}
	p.ID = f.id

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		f.settle(Outcome{}, ReasonClosed)
		return f
	}

	st := q.store.get()
	admitted := st.QueueSize
	overflow := admitted >= q.maxQueueSize
	if overflow {
		if st.OverflowNoticeShown {
			q.mu.Unlock()
			f.settle(Outcome{}, ReasonDropped)
			q.logger.Debug("Prompt dropped, overflow notice already shown",
				"prompt_id", f.id,
				"queue_size", admitted,
			)
			q.observer.RequestDropped()
			return f
		}
		st.OverflowNoticeShown = true
	} else {
		st.OverflowNoticeShown = false
	}

	rec := &record{
		future:     f,
		prompt:     p,
		overflow:   overflow,
		admittedAt: time.Now(),
	}
	st.QueueSize++
	q.store.set(st)
	q.waiting = append(q.waiting, rec)
	size := st.QueueSize
	q.mu.Unlock()

	if overflow {
		q.logger.Info("Prompt queue full, overflow notice queued",
			"prompt_id", f.id,
			"max_queue_size", q.maxQueueSize,
		)
	} else {
		q.logger.Debug("Prompt admitted",
			"prompt_id", f.id,
			"queue_size", size,
		)
	}
	q.observer.RequestAdmitted(overflow, size)

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return f
}

// CancelAll dismisses the prompt on screen and discards every request queued
// behind it. Queued requests settle with no outcome when their turn comes,
// without being presented. It is a no-op when the queue is empty.
func (q *Queue) CancelAll() {
	q.presentMu.Lock()
	defer q.presentMu.Unlock()

	q.mu.Lock()
	st := q.store.get()
	if q.closed || st.QueueSize == 0 {
		q.mu.Unlock()
		return
	}
	st.CancelRequested = true
	rec := st.pending
	if rec != nil {
		st.pending = nil
		st.QueueSize--
	}
	q.store.set(st)
	size := st.QueueSize
	q.mu.Unlock()

	q.logger.Info("Cancelling all prompts", "queue_size", size)

	q.presenter.Dismiss()
	if rec != nil {
		rec.future.settle(Outcome{}, ReasonCancelled)
		q.observer.RequestResolved(ReasonCancelled, size, time.Since(rec.presentedAt))
	}
}

// Status returns a snapshot of the queue.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	st := q.store.get()
	return Status{
		QueueSize:           st.QueueSize,
		Waiting:             len(q.waiting),
		Presenting:          st.pending != nil,
		OverflowNoticeShown: st.OverflowNoticeShown,
		CancelRequested:     st.CancelRequested,
		Closed:              q.closed,
	}
}

// Close stops the worker, dismisses the prompt on screen and settles every
// outstanding future with ReasonClosed. Later calls to Ask return futures
// that have already settled. Close is idempotent.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		waiting := q.waiting
		q.waiting = nil
		st := q.store.get()
		pending := st.pending
		q.store.set(State{})
		q.mu.Unlock()

		close(q.done)

		if pending != nil {
			q.presentMu.Lock()
			q.presenter.Dismiss()
			q.presentMu.Unlock()
			pending.future.settle(Outcome{}, ReasonClosed)
		}
		for _, rec := range waiting {
			rec.future.settle(Outcome{}, ReasonClosed)
		}

		<-q.stopped
		q.logger.Debug("Prompt queue closed", "discarded", len(waiting))
	})
}

// run is the worker loop. It owns the presenter between turns.
func (q *Queue) run() {
	defer close(q.stopped)

	for {
		rec, ok := q.next()
		if !ok {
			return
		}
		q.turn(rec)
	}
}

// next blocks until a record is waiting or the queue is closed.
func (q *Queue) next() (*record, bool) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		if len(q.waiting) > 0 {
			rec := q.waiting[0]
			q.waiting[0] = nil
			q.waiting = q.waiting[1:]
			q.mu.Unlock()
			return rec, true
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-q.done:
		}
	}
}

// turn presents one record and waits for it to settle. Its predecessor has
// always settled by the time turn is called.
func (q *Queue) turn(rec *record) {
	q.presentMu.Lock()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.presentMu.Unlock()
		rec.future.settle(Outcome{}, ReasonClosed)
		return
	}

	st := q.store.get()
	if st.CancelRequested {
		st.QueueSize--
		q.store.set(st)
		size := st.QueueSize
		q.mu.Unlock()
		q.presentMu.Unlock()

		rec.future.settle(Outcome{}, ReasonCancelled)
		q.logger.Debug("Prompt discarded by cancellation",
			"prompt_id", rec.future.id,
			"queue_size", size,
		)
		q.observer.RequestResolved(ReasonCancelled, size, 0)
		return
	}

	prompt := rec.prompt
	if rec.overflow {
		prompt = Prompt{
			ID:      rec.prompt.ID,
			Message: q.overflowMessage,
			Type:    MessageTypeWarning,
		}
	}
	rec.presentedAt = time.Now()
	st.pending = rec
	q.store.set(st)
	q.mu.Unlock()

	q.logger.Debug("Presenting prompt",
		"prompt_id", prompt.ID,
		"overflow_notice", rec.overflow,
		"waited", rec.presentedAt.Sub(rec.admittedAt),
	)
	q.observer.RequestPresented(prompt)
	q.presenter.Present(prompt, func(actionID string) {
		q.complete(rec, actionID)
	})
	q.presentMu.Unlock()

	<-rec.future.done

	// Completion cleanup; CancelAll and Close may already have dismissed.
	q.presentMu.Lock()
	q.presenter.Dismiss()
	q.presentMu.Unlock()
}

// complete is the resolver installed for the presented record. Only the first
// call for the record currently on screen has any effect.
func (q *Queue) complete(rec *record, actionID string) {
	q.mu.Lock()
	st := q.store.get()
	if st.pending != rec {
		q.mu.Unlock()
		return
	}
	st.pending = nil
	st.QueueSize--
	q.store.set(st)
	size := st.QueueSize
	q.mu.Unlock()

	outcome, reason := Outcome{}, ReasonDismissed
	if !rec.overflow {
		if a, ok := rec.prompt.Action(actionID); ok {
			outcome = Outcome{ActionID: a.ID, Label: a.Label}
			reason = ReasonAnswered
		}
	}
	rec.future.settle(outcome, reason)

	q.logger.Debug("Prompt completed",
		"prompt_id", rec.future.id,
		"reason", reason,
		"action_id", outcome.ActionID,
		"queue_size", size,
	)
	q.observer.RequestResolved(reason, size, time.Since(rec.presentedAt))
}
