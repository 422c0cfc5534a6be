// Package web presents prompts in the browser. The prompt on screen is
// pushed to every page connected to /ws, and the first valid answer from any
// of them completes it.
package web

import (
	"embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/inercia/promptq/internal/logging"
	"github.com/inercia/promptq/internal/promptqueue"
)

//go:embed static/index.html
var staticFS embed.FS

// Default per-connection answer rate.
const (
	DefaultAnswersPerSecond = 5.0
	DefaultAnswerBurst      = 10
)

// sendBufferSize is the number of frames buffered per browser.
const sendBufferSize = 16

// shown is the prompt on screen.
type shown struct {
	prompt     promptqueue.Prompt
	onComplete func(actionID string)
	frame      []byte
}

// Presenter implements promptqueue.Presenter and http.Handler.
type Presenter struct {
	logger    *slog.Logger
	converter *converter
	upgrader  websocket.Upgrader
	security  SecurityConfig
	onCancel  func()

	answerRate  rate.Limit
	answerBurst int

	mux *http.ServeMux

	mu      sync.Mutex
	clients map[*client]struct{}
	current *shown
	closed  bool
}

var (
	_ promptqueue.Presenter = (*Presenter)(nil)
	_ http.Handler          = (*Presenter)(nil)
)

// Option configures a Presenter.
type Option func(*Presenter)

// WithCancel accepts cancel_all frames, calling fn for each.
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

// WithAnswerRate limits how many answer frames each connection may send.
func WithAnswerRate(perSecond float64, burst int) Option {
	return func(p *Presenter) {
		p.answerRate = rate.Limit(perSecond)
		p.answerBurst = burst
	}
}

// WithSecurityConfig replaces DefaultSecurityConfig.
func WithSecurityConfig(cfg SecurityConfig) Option {
	return func(p *Presenter) {
		p.security = cfg
	}
}

// New creates a web presenter. Mount it with http.Handle or serve it
// directly; it answers / and /ws.
func New(opts ...Option) *Presenter {
	p := &Presenter{
		logger:      logging.Web(),
		converter:   newConverter(),
		security:    DefaultSecurityConfig(),
		answerRate:  rate.Limit(DefaultAnswersPerSecond),
		answerBurst: DefaultAnswerBurst,
		clients:     make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.upgrader = newUpgrader(p.security, p.logger)

	p.mux = http.NewServeMux()
	p.mux.HandleFunc("/", p.handleIndex)
	p.mux.HandleFunc("/ws", p.handleWS)
	return p
}

// ServeHTTP implements http.Handler.
func (p *Presenter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mux.ServeHTTP(w, r)
}

// Present broadcasts the prompt and keeps it for browsers that connect later.
func (p *Presenter) Present(pr promptqueue.Prompt, onComplete func(actionID string)) {
	frame := encode(WSMsgTypePrompt, PromptData{
		PromptID:      pr.ID,
		Type:          string(pr.Type),
		Message:       pr.Message,
		HTML:          p.converter.Render(pr.Message),
		Actions:       pr.Actions,
		DefaultAction: pr.DefaultAction,
	})

	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = &shown{prompt: pr, onComplete: onComplete, frame: frame}
	p.broadcastLocked(frame)
	p.logger.Debug("Prompt shown", "prompt_id", pr.ID, "clients", len(p.clients))
}

// Dismiss removes the prompt from every browser without completing it.
func (p *Presenter) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return
	}
	p.broadcastLocked(encode(WSMsgTypeDismiss, DismissData{PromptID: p.current.prompt.ID}))
	p.current = nil
}

// Clients returns the number of connected browsers.
func (p *Presenter) Clients() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Close disconnects every browser and refuses new connections.
func (p *Presenter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for c := range p.clients {
		delete(p.clients, c)
		close(c.send)
	}
}

func (p *Presenter) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

func (p *Presenter) handleWS(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.logger.Debug("WebSocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}
	configureConn(conn, p.security)

	id := uuid.New().String()
	c := &client{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		limiter: rate.NewLimiter(p.answerRate, p.answerBurst),
		config:  p.security,
		logger:  logging.WithClient(p.logger, id, r.RemoteAddr),
	}

	if !p.register(c) {
		conn.Close()
		return
	}
	c.logger.Debug("Browser connected")

	go c.writePump()
	c.readPump(p.handleMessage)

	p.unregister(c)
	c.logger.Debug("Browser disconnected")
}

// register adds c and queues the greeting and the prompt on screen, if any.
func (p *Presenter) register(c *client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	p.clients[c] = struct{}{}
	c.enqueue(encode(WSMsgTypeConnected, map[string]string{"client_id": c.id}))
	if p.current != nil {
		c.enqueue(p.current.frame)
	}
	return true
}

func (p *Presenter) unregister(c *client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.clients[c]; ok {
		delete(p.clients, c)
		close(c.send)
	}
}

// replyError sends an error frame to c unless it has been unregistered, in
// which case its send channel may already be closed.
func (p *Presenter) replyError(c *client, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyErrorLocked(c, message)
}

func (p *Presenter) replyErrorLocked(c *client, message string) {
	if _, ok := p.clients[c]; !ok {
		return
	}
	c.enqueue(encode(WSMsgTypeError, map[string]string{"message": message}))
}

// broadcastLocked must be called with p.mu held.
func (p *Presenter) broadcastLocked(frame []byte) {
	for c := range p.clients {
		c.enqueue(frame)
	}
}

func (p *Presenter) handleMessage(c *client, data []byte) {
	msg, err := ParseMessage(data)
	if err != nil {
		p.replyError(c, "invalid message")
		return
	}

	switch msg.Type {
	case WSMsgTypeAnswer:
		if !c.limiter.Allow() {
			c.logger.Warn("Answer rate limit exceeded")
			p.replyError(c, "too many answers")
			return
		}
		var answer AnswerData
		if err := json.Unmarshal(msg.Data, &answer); err != nil {
			p.replyError(c, "invalid answer")
			return
		}
		p.answer(c, answer)

	case WSMsgTypeCancelAll:
		if p.onCancel == nil {
			return
		}
		c.logger.Info("Cancel all requested from browser")
		p.onCancel()

	default:
		c.logger.Debug("Unknown message type", "type", msg.Type)
	}
}

// answer completes the prompt on screen if the answer refers to it. Answers
// for stale or unknown prompts are ignored.
func (p *Presenter) answer(c *client, a AnswerData) {
	p.mu.Lock()
	cur := p.current
	if cur == nil || cur.prompt.ID != a.PromptID {
		p.mu.Unlock()
		c.logger.Debug("Ignoring answer for a prompt not on screen", "prompt_id", a.PromptID)
		return
	}
	if a.ActionID != "" {
		if _, ok := cur.prompt.Action(a.ActionID); !ok {
			p.replyErrorLocked(c, "unknown action")
			p.mu.Unlock()
			return
		}
	}
	p.current = nil
	p.broadcastLocked(encode(WSMsgTypeDismiss, DismissData{PromptID: a.PromptID}))
	p.mu.Unlock()

	logging.WithPrompt(c.logger, a.PromptID).Debug("Prompt answered", "action_id", a.ActionID)
	cur.onComplete(a.ActionID)
}
