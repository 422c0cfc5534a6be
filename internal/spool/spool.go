// Package spool turns prompt files dropped into a directory into queued
// prompts and writes each answer back next to the file.
//
// For every new "<name>.md" the watcher asks the prompt and, once it
// settles, writes "<name>.answer.json" and renames the prompt file to
// "<name>.md.done". Files that cannot be parsed are renamed to
// "<name>.md.failed".
package spool

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/inercia/promptq/internal/fileutil"
	"github.com/inercia/promptq/internal/logging"
	"github.com/inercia/promptq/internal/promptqueue"
	"github.com/inercia/promptq/internal/script"
)

// DebounceDelay is the default delay for batching file system events.
const DebounceDelay = 100 * time.Millisecond

const (
	answerSuffix = ".answer.json"
	doneSuffix   = ".done"
	failedSuffix = ".failed"
)

// Asker submits prompts. *promptqueue.Queue implements it.
type Asker interface {
	Ask(p promptqueue.Prompt) *promptqueue.Future
}

// Answer is the content of an answer file.
type Answer struct {
	PromptID   string             `json:"prompt_id"`
	ActionID   string             `json:"action_id,omitempty"`
	Label      string             `json:"label,omitempty"`
	Reason     promptqueue.Reason `json:"reason"`
	AnsweredAt time.Time          `json:"answered_at"`
}

// AnswerPath returns the answer file written for the prompt file at path.
func AnswerPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + answerSuffix
}

// Watcher monitors a spool directory.
// All public methods are safe for concurrent use.
type Watcher struct {
	dir           string
	asker         Asker
	debounceDelay time.Duration
	logger        *slog.Logger

	watcher *fsnotify.Watcher

	// scanMu keeps scans sequential so files are asked in lexical order.
	scanMu sync.Mutex

	// inflight holds prompt files that were asked and not answered yet.
	inflightMu sync.Mutex
	inflight   map[string]bool

	debounceTimer *time.Timer
	debounceMu    sync.Mutex

	// waiters tracks goroutines waiting for answers.
	waiters sync.WaitGroup

	// done signals the event loop and the waiters to stop.
	done chan struct{}
	// stopped is closed when the event loop has exited.
	stopped   chan struct{}
	closeOnce sync.Once
}

// New creates a watcher for dir, creating the directory if needed.
// Call Start to begin processing and Close when done.
func New(dir string, asker Asker, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.Spool()
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve spool directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory %s: %w", absDir, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(absDir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch spool directory %s: %w", absDir, err)
	}

	return &Watcher{
		dir:           absDir,
		asker:         asker,
		debounceDelay: DebounceDelay,
		logger:        logger.With("dir", absDir),
		watcher:       fw,
		inflight:      make(map[string]bool),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}, nil
}

// SetDebounceDelay sets the debounce delay. Must be called before Start.
// Non-positive values keep the current delay.
func (w *Watcher) SetDebounceDelay(d time.Duration) {
	if d > 0 {
		w.debounceDelay = d
	}
}

// Dir returns the absolute path of the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Start asks the prompt files already present, in lexical order, then begins
// the event loop.
func (w *Watcher) Start() {
	w.scan()
	go w.eventLoop()
}

// Close stops the watcher. Prompts still waiting for an answer are left in
// place and will be asked again on the next start.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		<-w.stopped

		w.debounceMu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.debounceMu.Unlock()

		w.waiters.Wait()
	})
	return err
}

// Pending returns the number of asked prompt files without an answer.
func (w *Watcher) Pending() int {
	w.inflightMu.Lock()
	defer w.inflightMu.Unlock()
	return len(w.inflight)
}

func (w *Watcher) eventLoop() {
	defer close(w.stopped)

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Spool watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !script.IsPromptFile(event.Name) {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}

	w.logger.Debug("Spool directory changed",
		"path", event.Name,
		"op", event.Op.String())

	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.scan)
}

// scan asks every prompt file in the directory that is not in flight.
func (w *Watcher) scan() {
	w.scanMu.Lock()
	defer w.scanMu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("Failed to read spool directory", "error", err)
		return
	}

	for _, e := range entries {
		if e.IsDir() || !script.IsPromptFile(e.Name()) {
			continue
		}
		path := filepath.Join(w.dir, e.Name())

		w.inflightMu.Lock()
		busy := w.inflight[path]
		if !busy {
			w.inflight[path] = true
		}
		w.inflightMu.Unlock()
		if busy {
			continue
		}

		w.submit(path)
	}
}

func (w *Watcher) submit(path string) {
	f, err := script.Load(path)
	if err != nil {
		w.logger.Warn("Invalid prompt file", "path", path, "error", err)
		if err := os.Rename(path, path+failedSuffix); err != nil {
			w.logger.Warn("Failed to mark prompt file as failed", "path", path, "error", err)
		}
		w.forget(path)
		return
	}

	future := w.asker.Ask(f.Prompt)
	w.logger.Debug("Prompt file queued", "path", path, "prompt_id", future.ID())

	w.waiters.Add(1)
	go func() {
		defer w.waiters.Done()
		select {
		case <-future.Done():
			w.finish(path, future)
		case <-w.done:
		}
	}()
}

func (w *Watcher) finish(path string, future *promptqueue.Future) {
	defer w.forget(path)

	outcome, _ := future.Outcome()
	answer := Answer{
		PromptID:   future.ID(),
		ActionID:   outcome.ActionID,
		Label:      outcome.Label,
		Reason:     future.Reason(),
		AnsweredAt: time.Now().UTC(),
	}

	answerPath := AnswerPath(path)
	if err := fileutil.WriteJSONAtomic(answerPath, answer, 0644); err != nil {
		w.logger.Error("Failed to write answer", "path", answerPath, "error", err)
		return
	}
	if err := os.Rename(path, path+doneSuffix); err != nil {
		w.logger.Error("Failed to mark prompt file as done", "path", path, "error", err)
		return
	}

	w.logger.Info("Prompt file answered",
		"path", path,
		"reason", answer.Reason,
		"action_id", answer.ActionID)
}

func (w *Watcher) forget(path string) {
	w.inflightMu.Lock()
	defer w.inflightMu.Unlock()
	delete(w.inflight, path)
}
