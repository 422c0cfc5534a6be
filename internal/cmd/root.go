// Package cmd provides the CLI commands for promptq.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inercia/promptq/internal/appdir"
	"github.com/inercia/promptq/internal/config"
	"github.com/inercia/promptq/internal/logging"
)

var (
	// Global flags
	configPath    string
	debug         bool
	logLevel      string // --log-level flag (debug, info, warn, error)
	logFile       string
	logComponents string
	presenterKind string

	// Loaded configuration
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "promptq",
	Short: "promptq - Ask the user one question at a time",
	Long: `promptq serializes prompts to the user: every prompt is shown on
its own, in the order it was asked, and a burst of prompts collapses into a
single "too many messages" notice instead of flooding the screen.

Prompts can be shown on the terminal (line), as a full-screen dialog (tui)
or in the browser (web).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help and completion commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		if err := appdir.EnsureDir(); err != nil {
			return fmt.Errorf("failed to create promptq directory: %w", err)
		}

		var err error
		cfg, err = loadConfig(configPath, presenterKind)
		if err != nil {
			return err
		}

		logCfg, err := newLoggingConfig(logLevel, debug, logFile, logComponents, cfg.Presenter)
		if err != nil {
			return err
		}
		if err := logging.Initialize(logCfg); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		// Clean up logging resources
		return logging.Close()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file path (default: $"+config.ConfigEnv+" or config.yaml in the promptq directory)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging (shorthand for --log-level=debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: info)")
	rootCmd.PersistentFlags().StringVarP(&logFile, "logfile", "l", "", "Log file path (logs are also written to the console unless the tui presenter is used)")
	rootCmd.PersistentFlags().StringVar(&logComponents, "log-components", "", "Comma-separated list of components to log (e.g., 'queue,web'). Empty means all components.")
	rootCmd.PersistentFlags().StringVar(&presenterKind, "presenter", "", "How prompts are shown: line, tui or web (overrides the config file)")
}

// loadConfig reads the configuration from path, or from the default location
// when path is empty, and applies the --presenter override.
func loadConfig(path, presenter string) (*config.Config, error) {
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to locate configuration: %w", err)
		}
	}

	c, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if presenter != "" {
		c.Presenter = strings.ToLower(strings.TrimSpace(presenter))
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// effectiveLogLevel resolves the level: --log-level > --debug > info.
func effectiveLogLevel(level string, debug bool) string {
	if level != "" {
		return level
	}
	if debug {
		return "debug"
	}
	return "info"
}

// splitComponents parses the --log-components flag.
func splitComponents(s string) []string {
	var components []string
	for _, c := range strings.Split(s, ",") {
		c = strings.TrimSpace(c)
		if c != "" {
			components = append(components, c)
		}
	}
	return components
}

// newLoggingConfig builds the logging setup. The tui presenter owns the
// terminal, so its logs go to a file only, promptq.log in the promptq
// directory unless --logfile says otherwise.
func newLoggingConfig(level string, debug bool, file, components, presenter string) (logging.Config, error) {
	lc := logging.Config{
		Level:      effectiveLogLevel(level, debug),
		Components: splitComponents(components),
	}

	if presenter == config.PresenterTUI {
		lc.DisableConsole = true
		if file == "" {
			var err error
			file, err = appdir.LogPath()
			if err != nil {
				return lc, fmt.Errorf("failed to locate log file: %w", err)
			}
		}
	}

	if file != "" {
		fl := logging.DefaultFileLogConfig()
		fl.Path = file
		lc.FileLog = &fl
	}
	return lc, nil
}
