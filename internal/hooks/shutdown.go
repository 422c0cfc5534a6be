// Package hooks coordinates process shutdown: signal handling and ordered
// cleanup of the queue, the presenter and the servers around it.
package hooks

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/inercia/promptq/internal/logging"
)

// ShutdownFunc is a function that performs cleanup during shutdown.
// It receives a reason string describing why shutdown was triggered.
type ShutdownFunc func(reason string)

// ShutdownManager runs cleanup functions exactly once, on a signal or on an
// explicit Shutdown call.
//
// It is safe for concurrent use.
type ShutdownManager struct {
	mu       sync.Mutex
	once     sync.Once
	done     chan struct{}
	reason   string
	cleanups []ShutdownFunc

	// ctx is cancelled as soon as shutdown begins.
	ctx    context.Context
	cancel context.CancelFunc

	// onTerminateUI stops the UI event loop after the cleanups ran.
	onTerminateUI func()

	sigChan chan os.Signal
}

// NewShutdownManager creates a new shutdown manager.
// It does not start signal handling until Start() is called.
func NewShutdownManager() *ShutdownManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &ShutdownManager{
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetTerminateUI sets a callback run after all cleanup functions, used to
// stop a UI event loop that owns the main goroutine.
func (sm *ShutdownManager) SetTerminateUI(fn func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onTerminateUI = fn
}

// AddCleanup adds a cleanup function to be called during shutdown.
// Cleanup functions are called in the order they were added.
func (sm *ShutdownManager) AddCleanup(fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.cleanups = append(sm.cleanups, fn)
}

// Context returns a context that is cancelled when shutdown begins.
func (sm *ShutdownManager) Context() context.Context {
	return sm.ctx
}

// Start begins listening for SIGINT and SIGTERM. A signal triggers Shutdown.
func (sm *ShutdownManager) Start() {
	logger := logging.Shutdown()
	logger.Debug("Shutdown manager started, listening for signals")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sm.mu.Lock()
	sm.sigChan = sigChan
	sm.mu.Unlock()

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Signal received, initiating shutdown",
				"signal", sig.String(),
			)
			sm.Shutdown("signal:" + sig.String())
		case <-sm.done:
		}
	}()
}

// Shutdown triggers graceful shutdown with the given reason.
// Only the first call runs the cleanups; every call blocks until they are
// complete.
func (sm *ShutdownManager) Shutdown(reason string) {
	sm.once.Do(func() {
		sm.doShutdown(reason)
	})
	<-sm.done
}

func (sm *ShutdownManager) doShutdown(reason string) {
	logger := logging.Shutdown()
	logger.Info("Starting shutdown sequence",
		"reason", reason,
	)

	sm.cancel()

	sm.mu.Lock()
	sm.reason = reason
	cleanups := make([]ShutdownFunc, len(sm.cleanups))
	copy(cleanups, sm.cleanups)
	terminateUI := sm.onTerminateUI
	sigChan := sm.sigChan
	sm.mu.Unlock()

	if sigChan != nil {
		signal.Stop(sigChan)
	}

	for i, fn := range cleanups {
		logger.Debug("Running cleanup function",
			"index", i,
			"total", len(cleanups),
		)
		fn(reason)
	}

	if terminateUI != nil {
		logger.Debug("Terminating UI event loop")
		terminateUI()
	}

	logger.Info("Shutdown sequence complete",
		"reason", reason,
	)

	close(sm.done)
}

// Done returns a channel that is closed when shutdown is complete.
func (sm *ShutdownManager) Done() <-chan struct{} {
	return sm.done
}

// Reason returns the reason for shutdown, or empty string if not yet shut down.
func (sm *ShutdownManager) Reason() string {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.reason
}
