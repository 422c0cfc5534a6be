// Package tui presents prompts as a full-screen terminal dialog.
package tui

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/inercia/promptq/internal/logging"
	"github.com/inercia/promptq/internal/promptqueue"
)

// Presenter implements promptqueue.Presenter on top of a bubbletea program.
// Present and Dismiss block until the program is running.
type Presenter struct {
	program *tea.Program
	logger  *slog.Logger
}

var _ promptqueue.Presenter = (*Presenter)(nil)

// Option configures a Presenter.
type Option func(*config)

type config struct {
	onCancel   func()
	logger     *slog.Logger
	programOps []tea.ProgramOption
}

// WithCancel binds ctrl+x to fn, used to cancel every queued prompt.
func WithCancel(fn func()) Option {
	return func(c *config) {
		c.onCancel = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProgramOptions passes extra options to tea.NewProgram.
func WithProgramOptions(opts ...tea.ProgramOption) Option {
	return func(c *config) {
		c.programOps = append(c.programOps, opts...)
	}
}

// New creates a presenter. Call Run to take over the terminal.
func New(opts ...Option) *Presenter {
	c := &config{
		logger:     logging.Presenter(),
		programOps: []tea.ProgramOption{tea.WithAltScreen()},
	}
	for _, opt := range opts {
		opt(c)
	}
	return &Presenter{
		program: tea.NewProgram(newModel(c.onCancel), c.programOps...),
		logger:  c.logger,
	}
}

// Present shows the prompt, replacing any prompt on screen.
func (p *Presenter) Present(pr promptqueue.Prompt, onComplete func(actionID string)) {
	p.logger.Debug("Prompt shown", "prompt_id", pr.ID, "actions", len(pr.Actions))
	p.program.Send(presentMsg{prompt: pr, onComplete: onComplete})
}

// Dismiss removes the prompt on screen without completing it.
func (p *Presenter) Dismiss() {
	p.program.Send(dismissMsg{})
}

// Run runs the program until the user quits or ctx is done.
func (p *Presenter) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, p.program.Quit)
	defer stop()

	_, err := p.program.Run()
	return err
}

// Quit stops the program.
func (p *Presenter) Quit() {
	p.program.Quit()
}
