package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inercia/promptq/internal/promptqueue"
	"github.com/inercia/promptq/internal/script"
)

var (
	askMessage string
	askActions string
	askType    string
	askDefault string
)

// errNoAction is returned by ask when the prompt settles without a choice.
var errNoAction = errors.New("no action selected")

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a single question and print the chosen action",
	Long: `Show one prompt and print the ID of the action the user selects.

Actions are given as a single string of "id:label" entries. Quote labels
that contain spaces. An entry without a label uses the ID as label.

The prompt is drawn on stderr so stdout holds only the answer. If the user
dismisses the prompt the command fails.

Example:
  promptq ask -m "Overwrite config.yaml?" -a "yes:Overwrite no:'Keep it'" -d no
  promptq ask -m "Build finished" --type info
  promptq ask -m "Deploy?" -a "deploy abort" --presenter tui`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVarP(&askMessage, "message", "m", "", "Prompt message (markdown is rendered by the web presenter)")
	askCmd.Flags().StringVarP(&askActions, "actions", "a", "", `Actions as "id:label" entries, e.g. "yes:Yes no:'No thanks'"`)
	askCmd.Flags().StringVarP(&askType, "type", "t", "", "Message type: default, info, warning, error")
	askCmd.Flags().StringVarP(&askDefault, "default", "d", "", "ID of the action focused first")
	_ = askCmd.MarkFlagRequired("message")
}

func runAsk(cmd *cobra.Command, args []string) error {
	prompt, err := buildPrompt(askMessage, askActions, askType, askDefault)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, os.Stderr)
	if err != nil {
		return err
	}

	futures, err := a.askAll(cmd.Context(), []promptqueue.Prompt{prompt})
	if err != nil {
		return err
	}

	f := futures[0]
	outcome, _ := f.Outcome()
	if !outcome.OK() {
		return fmt.Errorf("%w (%s)", errNoAction, f.Reason())
	}
	fmt.Fprintln(cmd.OutOrStdout(), outcome.ActionID)
	return nil
}

// buildPrompt turns the ask flags into a prompt.
func buildPrompt(message, actions, msgType, defaultAction string) (promptqueue.Prompt, error) {
	var p promptqueue.Prompt

	acts, err := script.ParseActions(actions)
	if err != nil {
		return p, fmt.Errorf("invalid --actions: %w", err)
	}
	t, err := promptqueue.ParseMessageType(msgType)
	if err != nil {
		return p, fmt.Errorf("invalid --type: %w", err)
	}

	p = promptqueue.Prompt{
		Message:       message,
		Actions:       acts,
		Type:          t,
		DefaultAction: defaultAction,
	}
	if defaultAction != "" {
		if _, ok := p.Action(defaultAction); !ok {
			return promptqueue.Prompt{}, fmt.Errorf("invalid --default: %q is not one of the actions", defaultAction)
		}
	}
	return p, nil
}
