package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/inercia/promptq/internal/appdir"
	"github.com/inercia/promptq/internal/config"
	"github.com/inercia/promptq/internal/promptqueue"
	"github.com/inercia/promptq/internal/script"
)

func TestEffectiveLogLevel(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		want  string
	}{
		{"", false, "info"},
		{"", true, "debug"},
		{"warn", true, "warn"},
		{"error", false, "error"},
	}
	for _, tt := range tests {
		if got := effectiveLogLevel(tt.level, tt.debug); got != tt.want {
			t.Errorf("effectiveLogLevel(%q, %v) = %q, want %q", tt.level, tt.debug, got, tt.want)
		}
	}
}

func TestSplitComponents(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"queue", []string{"queue"}},
		{" queue , web,,spool ", []string{"queue", "web", "spool"}},
	}
	for _, tt := range tests {
		if got := splitComponents(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitComponents(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggingConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(appdir.DirEnv, dir)
	appdir.ResetCache()
	t.Cleanup(appdir.ResetCache)

	t.Run("line logs to console", func(t *testing.T) {
		lc, err := newLoggingConfig("", true, "", "queue", config.PresenterLine)
		if err != nil {
			t.Fatalf("newLoggingConfig() error = %v", err)
		}
		if lc.Level != "debug" || lc.DisableConsole || lc.FileLog != nil {
			t.Errorf("newLoggingConfig() = %+v", lc)
		}
		if !reflect.DeepEqual(lc.Components, []string{"queue"}) {
			t.Errorf("Components = %v, want [queue]", lc.Components)
		}
	})

	t.Run("tui logs to default file", func(t *testing.T) {
		lc, err := newLoggingConfig("", false, "", "", config.PresenterTUI)
		if err != nil {
			t.Fatalf("newLoggingConfig() error = %v", err)
		}
		if !lc.DisableConsole {
			t.Error("DisableConsole = false for tui")
		}
		want := filepath.Join(dir, appdir.LogFileName)
		if lc.FileLog == nil || lc.FileLog.Path != want {
			t.Errorf("FileLog = %+v, want path %s", lc.FileLog, want)
		}
	})

	t.Run("explicit file", func(t *testing.T) {
		lc, err := newLoggingConfig("", false, "/tmp/x.log", "", config.PresenterWeb)
		if err != nil {
			t.Fatalf("newLoggingConfig() error = %v", err)
		}
		if lc.FileLog == nil || lc.FileLog.Path != "/tmp/x.log" || lc.FileLog.MaxSizeMB == 0 {
			t.Errorf("FileLog = %+v", lc.FileLog)
		}
	})
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("presenter: web\nqueue:\n  max_size: 3\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	c, err := loadConfig(path, "")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if c.Presenter != config.PresenterWeb || c.Queue.MaxSize != 3 {
		t.Errorf("loadConfig() = presenter %q, max_size %d", c.Presenter, c.Queue.MaxSize)
	}

	c, err = loadConfig(path, " TUI ")
	if err != nil {
		t.Fatalf("loadConfig() with override error = %v", err)
	}
	if c.Presenter != config.PresenterTUI {
		t.Errorf("Presenter = %q, want %q", c.Presenter, config.PresenterTUI)
	}

	if _, err := loadConfig(path, "carrier-pigeon"); !errors.Is(err, config.ErrUnknownPresenter) {
		t.Errorf("loadConfig() error = %v, want %v", err, config.ErrUnknownPresenter)
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promptq.yaml")
	if err := os.WriteFile(path, []byte("presenter: tui\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv(config.ConfigEnv, path)

	c, err := loadConfig("", "")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if c.Presenter != config.PresenterTUI {
		t.Errorf("Presenter = %q, want %q", c.Presenter, config.PresenterTUI)
	}
}

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name    string
		actions string
		msgType string
		def     string
		want    promptqueue.Prompt
		wantErr bool
	}{
		{
			name:    "actions with labels",
			actions: "yes:Overwrite no:'Keep it'",
			def:     "no",
			msgType: "warning",
			want: promptqueue.Prompt{
				Message:       "msg",
				Type:          promptqueue.MessageTypeWarning,
				DefaultAction: "no",
				Actions: []promptqueue.Action{
					{ID: "yes", Label: "Overwrite"},
					{ID: "no", Label: "Keep it"},
				},
			},
		},
		{
			name: "notice",
			want: promptqueue.Prompt{Message: "msg", Type: promptqueue.MessageTypeDefault, Actions: []promptqueue.Action{}},
		},
		{name: "bad type", msgType: "loud", wantErr: true},
		{name: "unknown default", actions: "yes no", def: "maybe", wantErr: true},
		{name: "duplicate action", actions: "yes yes", wantErr: true},
		{name: "unterminated quote", actions: "yes:'Yes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildPrompt("msg", tt.actions, tt.msgType, tt.def)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("buildPrompt() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildPrompt() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("buildPrompt() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSpoolDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(appdir.DirEnv, dir)
	appdir.ResetCache()
	t.Cleanup(appdir.ResetCache)

	tests := []struct {
		flag, configured, want string
	}{
		{"/a", "/b", "/a"},
		{"", "/b", "/b"},
		{"", "", filepath.Join(dir, appdir.SpoolDirName)},
	}
	for _, tt := range tests {
		got, err := spoolDir(tt.flag, tt.configured)
		if err != nil {
			t.Fatalf("spoolDir() error = %v", err)
		}
		if got != tt.want {
			t.Errorf("spoolDir(%q, %q) = %q, want %q", tt.flag, tt.configured, got, tt.want)
		}
	}
}

// firstActionPresenter answers every prompt with its first action.
type firstActionPresenter struct{}

func (firstActionPresenter) Present(p promptqueue.Prompt, onComplete func(string)) {
	id := ""
	if len(p.Actions) > 0 {
		id = p.Actions[0].ID
	}
	go onComplete(id)
}

func (firstActionPresenter) Dismiss() {}

// silentPresenter never answers.
type silentPresenter struct{}

func (silentPresenter) Present(promptqueue.Prompt, func(string)) {}
func (silentPresenter) Dismiss()                                 {}

func newTestApp(t *testing.T, presenter promptqueue.Presenter, run func(context.Context) error) *app {
	t.Helper()
	q, err := promptqueue.New(presenter, promptqueue.WithMaxQueueSize(10))
	if err != nil {
		t.Fatalf("promptqueue.New() error = %v", err)
	}
	t.Cleanup(q.Close)
	return &app{cfg: config.Default(), queue: q, run: run}
}

func waitForCancel(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func TestAskAll(t *testing.T) {
	a := newTestApp(t, firstActionPresenter{}, waitForCancel)

	prompts := []promptqueue.Prompt{
		{Message: "one", Actions: []promptqueue.Action{{ID: "a", Label: "A"}}},
		{Message: "two", Actions: []promptqueue.Action{{ID: "b", Label: "B"}}},
		{Message: "three"},
	}

	futures, err := a.askAll(context.Background(), prompts)
	if err != nil {
		t.Fatalf("askAll() error = %v", err)
	}

	want := []struct {
		action string
		reason promptqueue.Reason
	}{
		{"a", promptqueue.ReasonAnswered},
		{"b", promptqueue.ReasonAnswered},
		{"", promptqueue.ReasonDismissed},
	}
	for i, w := range want {
		outcome, ok := futures[i].Outcome()
		if !ok {
			t.Fatalf("future %d not settled", i)
		}
		if outcome.ActionID != w.action || futures[i].Reason() != w.reason {
			t.Errorf("future %d = %q/%s, want %q/%s", i, outcome.ActionID, futures[i].Reason(), w.action, w.reason)
		}
	}
	if !a.queue.Status().Closed {
		t.Error("queue not closed after askAll")
	}
}

func TestAskAll_PresenterStops(t *testing.T) {
	stopErr := errors.New("terminal gone")
	a := newTestApp(t, silentPresenter{}, func(context.Context) error {
		time.Sleep(20 * time.Millisecond)
		return stopErr
	})

	futures, err := a.askAll(context.Background(), []promptqueue.Prompt{{Message: "x"}, {Message: "y"}})
	if !errors.Is(err, stopErr) {
		t.Errorf("askAll() error = %v, want %v", err, stopErr)
	}
	for i, f := range futures {
		if f.Reason() != promptqueue.ReasonClosed {
			t.Errorf("future %d reason = %s, want %s", i, f.Reason(), promptqueue.ReasonClosed)
		}
	}
}

func TestAskAll_ContextCancelled(t *testing.T) {
	a := newTestApp(t, silentPresenter{}, waitForCancel)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	futures, err := a.askAll(ctx, []promptqueue.Prompt{{Message: "x"}})
	if err != nil {
		t.Fatalf("askAll() error = %v", err)
	}
	if futures[0].Reason() != promptqueue.ReasonClosed {
		t.Errorf("reason = %s, want %s", futures[0].Reason(), promptqueue.ReasonClosed)
	}
}

func TestPrintOutcomes(t *testing.T) {
	a := newTestApp(t, firstActionPresenter{}, waitForCancel)
	files := []*script.File{
		{Name: "deploy", Prompt: promptqueue.Prompt{Message: "Deploy?", Actions: []promptqueue.Action{{ID: "go", Label: "Go"}}}},
		{Name: "notice", Prompt: promptqueue.Prompt{Message: "FYI"}},
	}

	futures, err := a.askAll(context.Background(), []promptqueue.Prompt{files[0].Prompt, files[1].Prompt})
	if err != nil {
		t.Fatalf("askAll() error = %v", err)
	}

	var out strings.Builder
	printOutcomes(&out, files, futures)

	want := "deploy\tgo\tanswered\nnotice\t-\tdismissed\n"
	if out.String() != want {
		t.Errorf("printOutcomes() = %q, want %q", out.String(), want)
	}
}

func TestAppHandler(t *testing.T) {
	c := config.Default()
	c.Presenter = config.PresenterWeb

	a, err := newApp(c, io.Discard)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(func() {
		a.queue.Close()
		a.web.Close()
	})

	server := httptest.NewServer(a.handler())
	defer server.Close()

	get := func(path string) (*http.Response, string) {
		t.Helper()
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp, string(body)
	}

	resp, body := get("/")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "promptq") {
		t.Errorf("GET / = %d", resp.StatusCode)
	}

	resp, body = get("/metrics")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "promptq_queue_size") {
		t.Errorf("GET /metrics = %d, body missing promptq_queue_size", resp.StatusCode)
	}

	resp, body = get("/api/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/status = %d", resp.StatusCode)
	}
	var st promptqueue.Status
	if err := json.Unmarshal([]byte(body), &st); err != nil {
		t.Fatalf("Unmarshal(status) error = %v", err)
	}
	if st.QueueSize != 0 || st.Closed {
		t.Errorf("status = %+v, want empty open queue", st)
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(appdir.DirEnv, dir)
	t.Setenv(config.ConfigEnv, "")
	appdir.ResetCache()
	t.Cleanup(appdir.ResetCache)

	var out strings.Builder
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"init"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("init error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, appdir.ConfigFileName)); err != nil {
		t.Errorf("config file not written: %v", err)
	}
	files, err := script.LoadDir(filepath.Join(dir, examplesDirName))
	if err != nil {
		t.Fatalf("LoadDir(examples) error = %v", err)
	}
	if len(files) == 0 {
		t.Error("no example prompts deployed")
	}
	if !strings.Contains(out.String(), "Wrote ") {
		t.Errorf("init output = %q", out.String())
	}
}
