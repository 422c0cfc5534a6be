package promptqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFuture_SettlesOnce(t *testing.T) {
	f := newFuture()

	if _, ok := f.Outcome(); ok {
		t.Fatal("new future reports settled")
	}
	if f.Reason() != "" {
		t.Errorf("Reason() = %q, want empty while pending", f.Reason())
	}

	if !f.settle(Outcome{ActionID: "a", Label: "A"}, ReasonAnswered) {
		t.Fatal("first settle() = false, want true")
	}
	if f.settle(Outcome{}, ReasonCancelled) {
		t.Error("second settle() = true, want false")
	}

	o, ok := f.Outcome()
	if !ok || o.ActionID != "a" {
		t.Errorf("Outcome() = %+v, %v; want action a", o, ok)
	}
	if f.Reason() != ReasonAnswered {
		t.Errorf("Reason() = %q, want %q", f.Reason(), ReasonAnswered)
	}
}

func TestFuture_ConcurrentSettle(t *testing.T) {
	f := newFuture()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.settle(Outcome{}, ReasonDismissed) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("successful settles = %d, want 1", wins)
	}
}

func TestFuture_Wait(t *testing.T) {
	f := newFuture()
	go func() {
		time.Sleep(10 * time.Millisecond)
		f.settle(Outcome{ActionID: "ok", Label: "OK"}, ReasonAnswered)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	o, err := f.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if o.ActionID != "ok" {
		t.Errorf("Wait() = %+v, want action ok", o)
	}
}

func TestFuture_WaitContextCancelled(t *testing.T) {
	f := newFuture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
	if _, ok := f.Outcome(); ok {
		t.Error("abandoned wait settled the future")
	}
}

func TestFuture_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newFuture().ID()
		if seen[id] {
			t.Fatalf("duplicate future ID %q", id)
		}
		seen[id] = true
	}
}
