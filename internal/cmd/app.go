package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/inercia/promptq/internal/config"
	"github.com/inercia/promptq/internal/logging"
	"github.com/inercia/promptq/internal/metrics"
	"github.com/inercia/promptq/internal/presenter/line"
	"github.com/inercia/promptq/internal/presenter/tui"
	"github.com/inercia/promptq/internal/presenter/web"
	"github.com/inercia/promptq/internal/promptqueue"
)

// shutdownTimeout bounds the HTTP server's graceful shutdown.
const shutdownTimeout = 5 * time.Second

// app is a prompt queue wired to the configured presenter.
type app struct {
	cfg     *config.Config
	queue   *promptqueue.Queue
	metrics *metrics.Metrics
	web     *web.Presenter

	// run drives the presenter until ctx is done or the user quits.
	run func(ctx context.Context) error
	// blocksOnInput is set when run may outlive ctx, waiting for a line of
	// input that never comes.
	blocksOnInput bool
}

// newApp creates the queue and its presenter. Prompts and status messages
// are written to out.
func newApp(c *config.Config, out io.Writer) (*app, error) {
	a := &app{cfg: c, metrics: metrics.New()}

	var mu sync.Mutex
	cancelAll := func() {
		mu.Lock()
		q := a.queue
		mu.Unlock()
		if q != nil {
			q.CancelAll()
		}
	}

	var presenter promptqueue.Presenter
	switch c.Presenter {
	case config.PresenterTUI:
		p := tui.New(
			tui.WithCancel(cancelAll),
			tui.WithProgramOptions(tea.WithOutput(out)),
		)
		presenter = p
		a.run = p.Run

	case config.PresenterWeb:
		a.web = web.New(
			web.WithCancel(cancelAll),
			web.WithAnswerRate(c.Web.AnswersPerSecond, c.Web.AnswerBurst),
		)
		presenter = a.web
		a.run = func(ctx context.Context) error {
			return a.serveHTTP(ctx, out)
		}

	default:
		shell := line.NewShell()
		p := line.New(shell, out, line.WithCancel(cancelAll))
		shell.Completer = p.Complete
		presenter = p
		a.run = p.Run
		a.blocksOnInput = true
	}

	opts := append(c.QueueOptions(), promptqueue.WithObserver(a.metrics))
	q, err := promptqueue.New(presenter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt queue: %w", err)
	}
	mu.Lock()
	a.queue = q
	mu.Unlock()
	return a, nil
}

// handler serves the web presenter with the metrics and status endpoints.
func (a *app) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	mux.HandleFunc("/api/status", a.handleStatus)
	if a.web != nil {
		mux.Handle("/", a.web)
	}
	return mux
}

func (a *app) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.queue.Status()); err != nil {
		logging.Web().Debug("Failed to write status", "error", err)
	}
}

// serveHTTP listens on the configured address until ctx is done.
func (a *app) serveHTTP(ctx context.Context, out io.Writer) error {
	logger := logging.Web()

	addr := a.cfg.Web.Addr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	accessLog := web.NewAccessLogger(web.AccessLogConfig{Path: a.cfg.Web.AccessLog})
	defer accessLog.Close()

	srv := &http.Server{
		Handler:           accessLog.Middleware(a.handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Fprintf(out, "Prompts are shown at http://%s/\n", listener.Addr())
	logger.Info("Web presenter listening", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	// Hijacked websocket connections are not closed by Shutdown.
	a.web.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// askAll submits the prompts from separate goroutines and waits until every
// future has settled or the presenter stops. Futures are returned in the
// order of prompts. The queue is closed on return.
func (a *app) askAll(ctx context.Context, prompts []promptqueue.Prompt) ([]*promptqueue.Future, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- a.run(ctx)
	}()

	futures := make([]*promptqueue.Future, len(prompts))
	var wg sync.WaitGroup
	for i, p := range prompts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			futures[i] = a.queue.Ask(p)
		}()
	}
	wg.Wait()

	settled := make(chan struct{})
	go func() {
		for _, f := range futures {
			<-f.Done()
		}
		close(settled)
	}()

	var err error
	running := true
	select {
	case <-settled:
	case err = <-runErr:
		running = false
	case <-ctx.Done():
	}

	a.queue.Close()
	<-settled

	cancel()
	if running && !a.blocksOnInput {
		if e := <-runErr; err == nil {
			err = e
		}
	}
	return futures, err
}
