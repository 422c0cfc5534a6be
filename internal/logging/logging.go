// Package logging provides centralized logging configuration for promptq.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// globalLogger is the application-wide logger
	globalLogger *slog.Logger
	globalMu     sync.RWMutex

	// logWriter holds the rotating log file (if any) for cleanup
	logWriter   io.WriteCloser
	logWriterMu sync.Mutex

	// allowedComponents stores the set of components to log (nil means all)
	allowedComponents map[string]bool
	componentsMu      sync.RWMutex

	// console is where console output goes. Tests replace it.
	console io.Writer = os.Stderr
)

// Component names accepted by Config.Components.
const (
	ComponentQueue     = "queue"
	ComponentPresenter = "presenter"
	ComponentWeb       = "web"
	ComponentSpool     = "spool"
	ComponentShutdown  = "shutdown"
	ComponentCLI       = "cli"
)

// FileLogConfig holds configuration for file-based logging with rotation.
type FileLogConfig struct {
	// Path is the log file. Empty disables file logging.
	Path string

	// MaxSizeMB is the size in megabytes at which the file is rotated.
	// Default: 10MB
	MaxSizeMB int

	// MaxBackups is the number of rotated files to keep.
	// Default: 3
	MaxBackups int

	// Compress gzips rotated files.
	Compress bool
}

// DefaultFileLogConfig returns the default file log configuration.
func DefaultFileLogConfig() FileLogConfig {
	return FileLogConfig{
		MaxSizeMB:  10,
		MaxBackups: 3,
	}
}

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level for console output (debug, info, warn, error)
	Level string
	// FileLevel is the minimum level for file output. Empty means Level.
	FileLevel string
	// FileLog enables a rotating log file in addition to the console.
	FileLog *FileLogConfig
	// JSON enables JSON output format
	JSON bool
	// Components restricts output to the named components (empty means all)
	Components []string
	// DisableConsole drops console output, for when a full-screen UI owns
	// the terminal. The log file, if any, is unaffected.
	DisableConsole bool
}

// Initialize sets up the global logger. When FileLog is set, records go to
// both the console and the rotating file; if the two levels differ each
// destination gets its own handler.
func Initialize(cfg Config) error {
	consoleLevel := parseLevel(cfg.Level)
	fileLevel := consoleLevel
	if cfg.FileLevel != "" {
		fileLevel = parseLevel(cfg.FileLevel)
	}

	setComponents(cfg.Components)

	out := console
	if cfg.DisableConsole {
		out = io.Discard
	}

	logWriterMu.Lock()
	defer logWriterMu.Unlock()

	var fileWriter io.Writer
	if cfg.FileLog != nil && cfg.FileLog.Path != "" {
		maxSize := cfg.FileLog.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		maxBackups := cfg.FileLog.MaxBackups
		if maxBackups < 0 {
			maxBackups = 3
		}

		lj := &lumberjack.Logger{
			Filename:   cfg.FileLog.Path,
			MaxSize:    maxSize,    // megabytes
			MaxBackups: maxBackups, // number of backups
			MaxAge:     0,          // keep backups regardless of age
			Compress:   cfg.FileLog.Compress,
		}
		if logWriter != nil {
			_ = logWriter.Close()
		}
		logWriter = lj
		fileWriter = lj
	}

	newHandler := func(w io.Writer, level slog.Level) slog.Handler {
		opts := &slog.HandlerOptions{Level: level}
		if cfg.JSON {
			return slog.NewJSONHandler(w, opts)
		}
		return slog.NewTextHandler(w, opts)
	}

	var handler slog.Handler
	switch {
	case fileWriter != nil && fileLevel != consoleLevel:
		handler = &multiHandler{handlers: []slog.Handler{
			newHandler(out, consoleLevel),
			newHandler(fileWriter, fileLevel),
		}}
	case fileWriter != nil:
		handler = newHandler(io.MultiWriter(out, fileWriter), consoleLevel)
	default:
		handler = newHandler(out, consoleLevel)
	}

	logger := slog.New(handler)

	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()

	slog.SetDefault(logger)

	return nil
}

func setComponents(components []string) {
	componentsMu.Lock()
	defer componentsMu.Unlock()

	if len(components) == 0 {
		allowedComponents = nil
		return
	}
	allowedComponents = make(map[string]bool, len(components))
	for _, c := range components {
		allowedComponents[strings.ToLower(strings.TrimSpace(c))] = true
	}
}

// multiHandler fans out log records to multiple handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// Get returns the global logger, or slog.Default() before Initialize.
func Get() *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// Close closes the log file, if any.
func Close() error {
	logWriterMu.Lock()
	defer logWriterMu.Unlock()

	if logWriter != nil {
		err := logWriter.Close()
		logWriter = nil
		return err
	}
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isComponentAllowed(component string) bool {
	componentsMu.RLock()
	defer componentsMu.RUnlock()

	if allowedComponents == nil {
		return true
	}
	return allowedComponents[component]
}

// componentFilterHandler drops records from components that are not enabled.
type componentFilterHandler struct {
	inner     slog.Handler
	component string
}

func (h *componentFilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if !isComponentAllowed(h.component) {
		return false
	}
	return h.inner.Enabled(ctx, level)
}

func (h *componentFilterHandler) Handle(ctx context.Context, r slog.Record) error {
	if !isComponentAllowed(h.component) {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *componentFilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &componentFilterHandler{
		inner:     h.inner.WithAttrs(attrs),
		component: h.component,
	}
}

func (h *componentFilterHandler) WithGroup(name string) slog.Handler {
	return &componentFilterHandler{
		inner:     h.inner.WithGroup(name),
		component: h.component,
	}
}

// WithComponent returns a logger tagged with component. Records are discarded
// when component filtering is active and the component is not listed.
func WithComponent(component string) *slog.Logger {
	base := Get()
	handler := &componentFilterHandler{
		inner:     base.Handler().WithAttrs([]slog.Attr{slog.String("component", component)}),
		component: component,
	}
	return slog.New(handler)
}

// Queue returns a logger for the prompt queue.
func Queue() *slog.Logger {
	return WithComponent(ComponentQueue)
}

// Presenter returns a logger for presenter events.
func Presenter() *slog.Logger {
	return WithComponent(ComponentPresenter)
}

// Web returns a logger for the web presenter.
func Web() *slog.Logger {
	return WithComponent(ComponentWeb)
}

// Spool returns a logger for the prompt spool directory watcher.
func Spool() *slog.Logger {
	return WithComponent(ComponentSpool)
}

// Shutdown returns a logger for shutdown events.
func Shutdown() *slog.Logger {
	return WithComponent(ComponentShutdown)
}

// CLI returns a logger for command-line events.
func CLI() *slog.Logger {
	return WithComponent(ComponentCLI)
}

// WithPrompt returns a child logger that includes prompt_id.
func WithPrompt(base *slog.Logger, promptID string) *slog.Logger {
	if base == nil {
		return nil
	}
	return base.With("prompt_id", promptID)
}

// WithClient returns a child logger that includes the WebSocket client_id
// and remote address.
func WithClient(base *slog.Logger, clientID, remoteAddr string) *slog.Logger {
	if base == nil {
		return nil
	}
	return base.With(
		"client_id", clientID,
		"remote_addr", remoteAddr,
	)
}
