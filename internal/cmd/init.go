package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	embeddedconfig "github.com/inercia/promptq/config"
	"github.com/inercia/promptq/internal/appdir"
	"github.com/inercia/promptq/internal/config"
)

// examplesDirName is where "promptq init" puts the example prompt files,
// inside the promptq directory.
const examplesDirName = "examples"

var initForce bool

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration and example prompts",
	Long: `Write the default configuration file and a few example prompt files
to the promptq directory. Existing files are kept unless --force is given.

Try the examples with:
  promptq run ~/.promptq/examples`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	written, err := embeddedconfig.WriteDefaultConfig(path, initForce)
	if err != nil {
		return err
	}
	if written {
		fmt.Fprintf(out, "Wrote %s\n", path)
	} else {
		fmt.Fprintf(out, "Kept existing %s\n", path)
	}

	dir, err := appdir.Dir()
	if err != nil {
		return err
	}
	examples := filepath.Join(dir, examplesDirName)
	result, err := embeddedconfig.DeployExamplePrompts(examples, initForce)
	if err != nil {
		return err
	}
	for _, name := range result.Deployed {
		fmt.Fprintf(out, "Wrote %s\n", filepath.Join(examples, name))
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintf(out, "Kept %d existing example(s) in %s\n", len(result.Skipped), examples)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("failed to write %d example(s): %w", len(result.Errors), result.Errors[0])
	}
	return nil
}
