package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewAccessLogger_Disabled(t *testing.T) {
	if a := NewAccessLogger(AccessLogConfig{}); a != nil {
		t.Error("NewAccessLogger() with empty path should return nil")
	}

	// A nil logger is a pass-through.
	var a *AccessLogger
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if got := a.Middleware(h); got == nil {
		t.Error("Middleware() on nil logger returned nil")
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close() on nil logger error = %v", err)
	}
}

func TestAccessLogger_Middleware(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	a := NewAccessLogger(AccessLogConfig{Path: path})

	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	r.RemoteAddr = "192.0.2.1:4321"
	r.Header.Set("User-Agent", `curl "quoted"`)
	h.ServeHTTP(httptest.NewRecorder(), r)

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	line := string(data)
	for _, want := range []string{
		`192.0.2.1 "GET /api/status" 418 15 `,
		`"curl \"quoted\""`,
	} {
		if !strings.Contains(line, want) {
			t.Errorf("access log %q missing %q", line, want)
		}
	}
}

func TestAccessLogger_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	a := NewAccessLogger(AccessLogConfig{Path: path, MaxSizeMB: 1, MaxBackups: 2})
	defer a.Close()

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a.Write(LogEntry{
		Timestamp:  ts,
		ClientIP:   "127.0.0.1",
		Method:     http.MethodGet,
		Path:       "/ws",
		StatusCode: http.StatusSwitchingProtocols,
		Duration:   1500 * time.Millisecond,
	})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	want := "2026-01-02T03:04:05Z 127.0.0.1 \"GET /ws\" 101 0 1500ms \"\"\n"
	if string(data) != want {
		t.Errorf("access log = %q, want %q", data, want)
	}
}
