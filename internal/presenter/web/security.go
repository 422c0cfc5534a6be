package web

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// SecurityConfig holds limits applied to every websocket connection.
type SecurityConfig struct {
	// AllowedOrigins lists origins allowed to connect besides the page's own.
	// "*" allows every origin.
	AllowedOrigins []string

	// MaxMessageSize is the maximum size of an incoming frame in bytes.
	MaxMessageSize int64

	// PongWait is the time to wait for a pong response.
	PongWait time.Duration

	// PingPeriod is the interval between pings. Must be less than PongWait.
	PingPeriod time.Duration

	// WriteWait is the time allowed to write a frame.
	WriteWait time.Duration
}

// DefaultSecurityConfig returns the limits used by New.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxMessageSize: 16 * 1024,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		WriteWait:      10 * time.Second,
	}
}

func newUpgrader(cfg SecurityConfig, logger *slog.Logger) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins, logger),
	}
}

// originChecker returns a CheckOrigin func accepting same-origin requests,
// requests without an Origin header, and the allowlist.
func originChecker(allowedOrigins []string, logger *slog.Logger) func(*http.Request) bool {
	allowedSet := make(map[string]bool)
	allowAll := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
			break
		}
		allowedSet[strings.ToLower(origin)] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		logResult := func(allowed bool, reason string) bool {
			logger.Debug("WS: Origin check",
				"origin", origin,
				"host", r.Host,
				"allowed", allowed,
				"reason", reason)
			return allowed
		}

		// Non-browser clients cannot perform cross-site websocket hijacking.
		if origin == "" {
			return logResult(true, "no origin header")
		}
		if allowAll {
			return logResult(true, "allow all origins configured")
		}

		originURL, err := url.Parse(origin)
		if err != nil {
			return logResult(false, "failed to parse origin URL")
		}

		if allowedSet[strings.ToLower(origin)] || allowedSet[strings.ToLower(originURL.Host)] {
			return logResult(true, "origin in allowlist")
		}
		if isSameOrigin(r, originURL) {
			return logResult(true, "same-origin check passed")
		}
		return logResult(false, "same-origin check failed")
	}
}

// isSameOrigin checks that the origin's host and port match the request's.
func isSameOrigin(r *http.Request, originURL *url.URL) bool {
	requestHostname, requestPort, err := net.SplitHostPort(r.Host)
	if err != nil {
		requestHostname = r.Host
		requestPort = ""
	}

	originHostname, originPort, err := net.SplitHostPort(originURL.Host)
	if err != nil {
		originHostname = originURL.Host
		originPort = ""
	}

	if !strings.EqualFold(requestHostname, originHostname) {
		return false
	}

	if originPort == "" {
		switch originURL.Scheme {
		case "https", "wss":
			originPort = "443"
		case "http", "ws":
			originPort = "80"
		}
	}

	// Behind a reverse proxy the request may carry no port.
	if requestPort == "" {
		return true
	}
	return requestPort == originPort
}

// configureConn applies read limits and keepalive deadlines.
func configureConn(conn *websocket.Conn, cfg SecurityConfig) {
	conn.SetReadLimit(cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		return nil
	})
}
