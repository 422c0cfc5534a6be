package promptqueue

import (
	"log/slog"
	"time"
)

const (
	// DefaultMaxQueueSize is the backlog at which the overflow notice kicks in.
	DefaultMaxQueueSize = 20
	// DefaultOverflowMessage is shown once per overflow episode.
	DefaultOverflowMessage = "Too many messages. Some messages have been dropped."
	// DefaultMessage replaces an empty prompt message.
	DefaultMessage = "Unknown message."
)

// Observer receives queue lifecycle notifications, typically for metrics.
// Methods are called without the queue's lock held and must not block.
type Observer interface {
	// RequestAdmitted is called after a request enters the queue.
	RequestAdmitted(overflowNotice bool, queueSize int)
	// RequestDropped is called when a request is rejected by the overflow gate.
	RequestDropped()
	// RequestPresented is called right before a prompt is handed to the presenter.
	RequestPresented(p Prompt)
	// RequestResolved is called after an admitted request settles. shown is how
	// long the prompt was on screen, zero if it never was.
	RequestResolved(reason Reason, queueSize int, shown time.Duration)
}

type noopObserver struct{}

func (noopObserver) RequestAdmitted(bool, int)                  {}
func (noopObserver) RequestDropped()                            {}
func (noopObserver) RequestPresented(Prompt)                    {}
func (noopObserver) RequestResolved(Reason, int, time.Duration) {}

type options struct {
	maxQueueSize    int
	overflowMessage string
	defaultMessage  string
	logger          *slog.Logger
	observer        Observer
}

// Option configures a Queue at construction.
type Option func(*options)

// WithMaxQueueSize sets the backlog size at which requests collapse into the
// overflow notice. It must be positive.
func WithMaxQueueSize(n int) Option {
	return func(o *options) {
		o.maxQueueSize = n
	}
}

// WithOverflowMessage sets the text of the overflow notice.
// An empty string keeps the default.
func WithOverflowMessage(msg string) Option {
	return func(o *options) {
		if msg != "" {
			o.overflowMessage = msg
		}
	}
}

// WithDefaultMessage sets the text used for prompts submitted without one.
// An empty string keeps the default.
func WithDefaultMessage(msg string) Option {
	return func(o *options) {
		if msg != "" {
			o.defaultMessage = msg
		}
	}
}

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers an observer for queue events.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}
