package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inercia/promptq/internal/appdir"
	"github.com/inercia/promptq/internal/hooks"
	"github.com/inercia/promptq/internal/logging"
	"github.com/inercia/promptq/internal/spool"
)

var (
	serveSpoolDir string
	serveNoSpool  bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Show prompts dropped into the spool directory until stopped",
	Long: `Run the presenter and watch the spool directory for prompt files.

Every "<name>.md" file written to the spool directory is asked. When it
settles the answer is written to "<name>.answer.json" and the prompt file is
renamed to "<name>.md.done". Files that cannot be parsed are renamed to
"<name>.md.failed".

With the web presenter the HTTP server also exposes /metrics (Prometheus)
and /api/status.

Example:
  promptq serve                            # Spool in the promptq directory
  promptq serve --spool ./prompts          # Watch a custom directory
  promptq serve --presenter web            # Show prompts in the browser`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveSpoolDir, "spool", "", "Spool directory (default: spool.dir from the config, or spool/ in the promptq directory)")
	serveCmd.Flags().BoolVar(&serveNoSpool, "no-spool", false, "Do not watch a spool directory")
}

// spoolDir resolves the watched directory: --spool > config > default.
func spoolDir(flag, configured string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if configured != "" {
		return configured, nil
	}
	return appdir.SpoolDir()
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := logging.CLI()

	a, err := newApp(cfg, os.Stderr)
	if err != nil {
		return err
	}

	sm := hooks.NewShutdownManager()

	var watcher *spool.Watcher
	if !serveNoSpool {
		dir, err := spoolDir(serveSpoolDir, cfg.Spool.Dir)
		if err != nil {
			return fmt.Errorf("failed to locate spool directory: %w", err)
		}
		watcher, err = spool.New(dir, a.queue, nil)
		if err != nil {
			return err
		}
		watcher.SetDebounceDelay(cfg.Spool.Debounce)
		fmt.Fprintf(os.Stderr, "Watching %s for prompt files\n", watcher.Dir())
	}

	// The spool goes first so that files still waiting for an answer are
	// left in place rather than answered as closed.
	sm.AddCleanup(func(reason string) {
		if watcher != nil {
			if err := watcher.Close(); err != nil {
				logger.Warn("Failed to close spool watcher", "error", err)
			}
		}
	})
	sm.AddCleanup(func(reason string) {
		a.queue.CancelAll()
		a.queue.Close()
	})

	sm.Start()
	if watcher != nil {
		watcher.Start()
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- a.run(sm.Context())
	}()

	select {
	case err = <-runErr:
		sm.Shutdown("presenter stopped")
	case <-sm.Done():
		// Let a full-screen presenter restore the terminal.
		if !a.blocksOnInput {
			err = <-runErr
		}
	}

	logger.Debug("Serve finished", "reason", sm.Reason())
	return err
}
