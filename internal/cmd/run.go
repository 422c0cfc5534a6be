package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/inercia/promptq/internal/promptqueue"
	"github.com/inercia/promptq/internal/script"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run FILE|DIR...",
	Short: "Ask every prompt in the given prompt files",
	Long: `Load prompt files and ask all of them at once, the way independent
callers would. The queue shows them one at a time; once every prompt has
settled, one line per file is printed in argument order:

  <name>	<action id or ->	<reason>

Prompt files are markdown documents with optional YAML front matter:

  ---
  type: warning
  default: keep
  actions:
    - id: overwrite
      label: Overwrite
    - id: keep
      label: Keep
  ---
  The file **config.yaml** already exists.

Directories are read non-recursively, in lexical order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	files, err := script.LoadPaths(args)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, os.Stderr)
	if err != nil {
		return err
	}

	prompts := make([]promptqueue.Prompt, len(files))
	for i, f := range files {
		prompts[i] = f.Prompt
	}

	futures, err := a.askAll(cmd.Context(), prompts)
	printOutcomes(cmd.OutOrStdout(), files, futures)
	return err
}

// printOutcomes writes one tab-separated line per prompt file.
func printOutcomes(w io.Writer, files []*script.File, futures []*promptqueue.Future) {
	for i, f := range files {
		fmt.Fprintln(w, formatOutcome(f.Name, futures[i]))
	}
}

func formatOutcome(name string, f *promptqueue.Future) string {
	outcome, _ := f.Outcome()
	action := "-"
	if outcome.OK() {
		action = outcome.ActionID
	}
	return fmt.Sprintf("%s\t%s\t%s", name, action, f.Reason())
}
