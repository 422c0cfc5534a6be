// Package config handles configuration loading for promptq.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/inercia/promptq/internal/appdir"
	"github.com/inercia/promptq/internal/promptqueue"
)

// ConfigEnv overrides the configuration file path.
const ConfigEnv = "PROMPTQ_CONFIG"

// Presenter kinds.
const (
	PresenterLine = "line"
	PresenterTUI  = "tui"
	PresenterWeb  = "web"
)

// Defaults for the web presenter and the spool watcher.
const (
	DefaultWebHost          = "127.0.0.1"
	DefaultWebPort          = 8089
	DefaultAnswersPerSecond = 5.0
	DefaultAnswerBurst      = 10
	DefaultSpoolDebounce    = 100 * time.Millisecond
)

var (
	// ErrUnknownPresenter is returned when the presenter kind is not one of
	// line, tui or web.
	ErrUnknownPresenter = errors.New("unknown presenter")
	// ErrInvalidConfig wraps every other validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// QueueConfig configures the prompt queue.
type QueueConfig struct {
	// MaxSize is the backlog at which further prompts collapse into the
	// overflow notice (default: 20)
	MaxSize int `yaml:"max_size"`
	// OverflowMessage is the text of the overflow notice
	OverflowMessage string `yaml:"overflow_message,omitempty"`
	// DefaultMessage replaces empty prompt messages
	DefaultMessage string `yaml:"default_message,omitempty"`
}

// WebConfig configures the web presenter.
type WebConfig struct {
	// Host is the listen address (default: 127.0.0.1).
	// Use "0.0.0.0" to listen on all interfaces
	Host string `yaml:"host"`
	// Port is the listen port (default: 8089)
	Port int `yaml:"port"`
	// AnswersPerSecond limits answer frames per browser connection
	AnswersPerSecond float64 `yaml:"answers_per_second"`
	// AnswerBurst is the burst size for the answer rate limiter
	AnswerBurst int `yaml:"answer_burst"`
	// AccessLog is an optional file receiving one line per HTTP request
	AccessLog string `yaml:"access_log,omitempty"`
}

// Addr returns host:port.
func (w WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// SpoolConfig configures the prompt spool directory.
type SpoolConfig struct {
	// Dir is the watched directory. Empty disables the spool.
	Dir string `yaml:"dir"`
	// Debounce batches bursts of file system events
	Debounce time.Duration `yaml:"debounce"`
}

// Config represents the complete promptq configuration.
type Config struct {
	Queue QueueConfig `yaml:"queue"`
	// Presenter selects how prompts are shown: line, tui or web
	Presenter string      `yaml:"presenter"`
	Web       WebConfig   `yaml:"web"`
	Spool     SpoolConfig `yaml:"spool"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Queue: QueueConfig{
			MaxSize:         promptqueue.DefaultMaxQueueSize,
			OverflowMessage: promptqueue.DefaultOverflowMessage,
			DefaultMessage:  promptqueue.DefaultMessage,
		},
		Presenter: PresenterLine,
		Web: WebConfig{
			Host:             DefaultWebHost,
			Port:             DefaultWebPort,
			AnswersPerSecond: DefaultAnswersPerSecond,
			AnswerBurst:      DefaultAnswerBurst,
		},
		Spool: SpoolConfig{
			Debounce: DefaultSpoolDebounce,
		},
	}
}

// DefaultPath returns $PROMPTQ_CONFIG, or config.yaml in the data directory.
func DefaultPath() (string, error) {
	if envPath := os.Getenv(ConfigEnv); envPath != "" {
		return envPath, nil
	}
	return appdir.ConfigPath()
}

// Load reads the configuration file at path. A missing file yields the
// defaults; any other read or parse failure is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Presenter = strings.ToLower(strings.TrimSpace(cfg.Presenter))
	if cfg.Presenter == "" {
		cfg.Presenter = PresenterLine
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the queue or the presenters
// would reject.
func (c *Config) Validate() error {
	if c.Queue.MaxSize <= 0 {
		return fmt.Errorf("%w: queue.max_size must be positive, got %d", ErrInvalidConfig, c.Queue.MaxSize)
	}

	switch c.Presenter {
	case PresenterLine, PresenterTUI, PresenterWeb:
	default:
		return fmt.Errorf("%w %q (want %s, %s or %s)", ErrUnknownPresenter, c.Presenter, PresenterLine, PresenterTUI, PresenterWeb)
	}

	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return fmt.Errorf("%w: web.port %d out of range", ErrInvalidConfig, c.Web.Port)
	}
	if c.Web.AnswersPerSecond <= 0 {
		return fmt.Errorf("%w: web.answers_per_second must be positive", ErrInvalidConfig)
	}
	if c.Web.AnswerBurst <= 0 {
		return fmt.Errorf("%w: web.answer_burst must be positive", ErrInvalidConfig)
	}
	if c.Spool.Debounce < 0 {
		return fmt.Errorf("%w: spool.debounce must not be negative", ErrInvalidConfig)
	}
	return nil
}

// QueueOptions translates the queue section into promptqueue options.
func (c *Config) QueueOptions() []promptqueue.Option {
	return []promptqueue.Option{
		promptqueue.WithMaxQueueSize(c.Queue.MaxSize),
		promptqueue.WithOverflowMessage(c.Queue.OverflowMessage),
		promptqueue.WithDefaultMessage(c.Queue.DefaultMessage),
	}
}
