package promptqueue

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

const testTimeout = 2 * time.Second

// presentation is one call to fakePresenter.Present.
type presentation struct {
	prompt   Prompt
	complete func(actionID string)
}

// fakePresenter records every call and lets the test play the user.
type fakePresenter struct {
	presented chan presentation

	mu         sync.Mutex
	dismissals int
	calls      []string
}

func newFakePresenter() *fakePresenter {
	return &fakePresenter{presented: make(chan presentation, 64)}
}

func (p *fakePresenter) Present(pr Prompt, onComplete func(actionID string)) {
	p.mu.Lock()
	p.calls = append(p.calls, "present:"+pr.ID)
	p.mu.Unlock()
	p.presented <- presentation{prompt: pr, complete: onComplete}
}

func (p *fakePresenter) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dismissals++
	p.calls = append(p.calls, "dismiss")
}

func (p *fakePresenter) dismissCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dismissals
}

func (p *fakePresenter) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// next waits for the next presentation.
func (p *fakePresenter) next(t *testing.T) presentation {
	t.Helper()
	select {
	case pr := <-p.presented:
		return pr
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for a prompt to be presented")
		return presentation{}
	}
}

// expectNone asserts that nothing is presented within d.
func (p *fakePresenter) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case pr := <-p.presented:
		t.Fatalf("unexpected presentation of %q (%s)", pr.prompt.Message, pr.prompt.ID)
	case <-time.After(d):
	}
}

func newTestQueue(t *testing.T, p Presenter, opts ...Option) *Queue {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	q, err := New(p, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(q.Close)
	return q
}

// waitSettled waits for f to settle and returns its outcome.
func waitSettled(t *testing.T, f *Future) Outcome {
	t.Helper()
	select {
	case <-f.Done():
	case <-time.After(testTimeout):
		t.Fatalf("timed out waiting for future %s to settle", f.ID())
	}
	o, ok := f.Outcome()
	if !ok {
		t.Fatalf("future %s closed Done but Outcome() reports pending", f.ID())
	}
	return o
}

// eventually polls cond until it holds or the timeout expires.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition never held: %s", what)
}

func yesNo(msg string) Prompt {
	return Prompt{
		Message: msg,
		Actions: []Action{
			{ID: "yes", Label: "Yes"},
			{ID: "no", Label: "No"},
		},
	}
}
