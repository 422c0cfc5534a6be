// Package line presents prompts on a terminal as plain text and reads the
// user's choice one line at a time.
package line

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/reeflective/readline"

	"github.com/inercia/promptq/internal/logging"
	"github.com/inercia/promptq/internal/promptqueue"
)

// CancelCommand is the input line that cancels every queued prompt.
const CancelCommand = "/cancel"

// LineReader reads one line of input. *readline.Shell implements it.
type LineReader interface {
	Readline() (string, error)
}

// current is the prompt on screen.
type current struct {
	prompt     promptqueue.Prompt
	onComplete func(actionID string)
}

// Presenter implements promptqueue.Presenter on a line-oriented terminal.
type Presenter struct {
	in     LineReader
	out    io.Writer
	logger *slog.Logger

	// onCancel is invoked for CancelCommand; nil disables the command.
	onCancel func()

	mu      sync.Mutex
	current *current
}

var _ promptqueue.Presenter = (*Presenter)(nil)

// Option configures a Presenter.
type Option func(*Presenter)

// WithCancel enables CancelCommand, calling fn when the user types it.
func WithCancel(fn func()) Option {
	return func(p *Presenter) {
		p.onCancel = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Presenter) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a presenter reading from in and writing to out.
// Call Run to start processing input.
func New(in LineReader, out io.Writer, opts ...Option) *Presenter {
	p := &Presenter{
		in:     in,
		out:    out,
		logger: logging.Presenter(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewShell returns a readline shell for use with New. Attach the presenter's
// completer afterwards with shell.Completer = p.Complete.
func NewShell() *readline.Shell {
	rl := readline.NewShell()
	rl.Prompt.Primary(func() string { return "promptq> " })
	rl.History.Add("default", readline.NewInMemoryHistory())
	return rl
}

// Present prints the prompt and its numbered actions.
func (p *Presenter) Present(pr promptqueue.Prompt, onComplete func(actionID string)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = &current{prompt: pr, onComplete: onComplete}
	p.render(pr)
	p.logger.Debug("Prompt shown", "prompt_id", pr.ID, "actions", len(pr.Actions))
}

// Dismiss clears the prompt on screen without completing it.
func (p *Presenter) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return
	}
	fmt.Fprintln(p.out, "(dismissed)")
	p.current = nil
}

// Run reads lines until the reader fails or ctx is done. Ctrl+C behaves like
// CancelCommand when it is enabled and dismisses the prompt otherwise.
// End of input returns nil. ctx is checked between lines only.
func (p *Presenter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		text, err := p.in.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				p.interrupt()
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		p.HandleLine(text)
	}
}

func (p *Presenter) interrupt() {
	if p.onCancel != nil {
		p.onCancel()
		return
	}
	p.HandleLine("")
}

// HandleLine routes one line of input to the prompt on screen. It accepts an
// action number, an action ID or label (case-insensitive), or an empty line
// for the default action. A prompt without actions is dismissed by any line.
func (p *Presenter) HandleLine(text string) {
	text = strings.TrimSpace(text)

	if text == CancelCommand && p.onCancel != nil {
		p.onCancel()
		return
	}

	p.mu.Lock()
	cur := p.current
	if cur == nil {
		if text != "" {
			fmt.Fprintln(p.out, "No prompt is waiting for an answer.")
		}
		p.mu.Unlock()
		return
	}

	actionID, ok := choose(cur.prompt, text)
	if !ok {
		fmt.Fprintf(p.out, "Unknown choice %q. %s\n", text, hint(cur.prompt))
		p.mu.Unlock()
		return
	}
	p.current = nil
	p.mu.Unlock()

	p.logger.Debug("Prompt answered", "prompt_id", cur.prompt.ID, "action_id", actionID)
	cur.onComplete(actionID)
}

// Complete offers the actions of the prompt on screen for tab completion.
func (p *Presenter) Complete(line []rune, cursor int) readline.Completions {
	p.mu.Lock()
	cur := p.current
	p.mu.Unlock()

	if cursor > len(line) {
		cursor = len(line)
	}
	prefix := strings.ToLower(string(line[:cursor]))

	var pairs []string
	if cur != nil {
		for _, a := range cur.prompt.Actions {
			if strings.HasPrefix(strings.ToLower(a.ID), prefix) {
				pairs = append(pairs, a.ID, a.Label)
			}
		}
	}
	if p.onCancel != nil && strings.HasPrefix(CancelCommand, prefix) {
		pairs = append(pairs, CancelCommand, "Cancel all pending prompts")
	}
	if len(pairs) == 0 {
		return readline.Completions{}
	}
	return readline.CompleteValuesDescribed(pairs...).Tag("actions")
}

// choose maps an input line to an action ID. A prompt without actions
// accepts anything and yields "".
func choose(pr promptqueue.Prompt, text string) (string, bool) {
	if len(pr.Actions) == 0 {
		return "", true
	}
	if text == "" {
		return pr.Actions[pr.DefaultIndex()].ID, true
	}
	if n, err := strconv.Atoi(text); err == nil {
		if n >= 1 && n <= len(pr.Actions) {
			return pr.Actions[n-1].ID, true
		}
		return "", false
	}
	for _, a := range pr.Actions {
		if strings.EqualFold(a.ID, text) || strings.EqualFold(a.Label, text) {
			return a.ID, true
		}
	}
	return "", false
}

// render writes the prompt. Must be called with p.mu held.
func (p *Presenter) render(pr promptqueue.Prompt) {
	fmt.Fprintln(p.out)
	if pr.Type != promptqueue.MessageTypeDefault && pr.Type != "" {
		fmt.Fprintf(p.out, "[%s] ", strings.ToUpper(string(pr.Type)))
	}
	fmt.Fprintln(p.out, pr.Message)

	def := pr.DefaultIndex()
	for i, a := range pr.Actions {
		marker := " "
		if i == def {
			marker = "*"
		}
		fmt.Fprintf(p.out, " %s %d) %s [%s]\n", marker, i+1, a.Label, a.ID)
	}
	fmt.Fprintln(p.out, hint(pr))
}

func hint(pr promptqueue.Prompt) string {
	if len(pr.Actions) == 0 {
		return "Press Enter to dismiss."
	}
	return fmt.Sprintf("Choose 1-%d or an action, Enter for %q.", len(pr.Actions), pr.Actions[pr.DefaultIndex()].Label)
}
