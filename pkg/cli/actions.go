package cli

import (
	"context"
	"fmt"

	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/cobra"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/presenter"
)

type ActionRunConfig struct {
	Params string
	Diff   bool
}

func NewActionRunConfig() *ActionRunConfig {
	return &ActionRunConfig{}
}

func getActionRunConfigFromFlags(cmd *cobra.Command) *ActionRunConfig {
	config := NewActionRunConfig()
	if params, err := cmd.Flags().GetString("params"); err == nil {
		config.Params = params
	}
	if diff, err := cmd.Flags().GetBool("diff"); err == nil {
		config.Diff = diff
	}
	return config
}

// newActionCommands builds one subcommand per registered action, so the
// shell's command set follows whatever the binary's kit registered.
func newActionCommands() []*cobra.Command {
	var cmds []*cobra.Command
	for _, action := range actions.All() {
		cmds = append(cmds, newActionCommand(action))
	}
	return cmds
}

func newActionCommand(action actions.Action) *cobra.Command {
	long := action.Description()
	if pre := action.Precondition(); pre != nil {
		long += fmt.Sprintf("\n\nThe item must satisfy: %s.", pre.Name())
	}
	long += "\n\nThe item argument is a store path or a URL; URLs are saved as new resource items first."

	cmd := &cobra.Command{
		Use:   action.Name() + " <item>",
		Short: action.Description(),
		Long:  long,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			config := getActionRunConfigFromFlags(cmd)
			runActionCommand(cmd.Context(), action, args[0], config)
		},
	}
	cmd.Flags().String("params", "", "Action parameters as a JSON object")
	cmd.Flags().Bool("diff", false, "Show a diff between the input and result bodies")
	return withTracing(cmd)
}

func runActionCommand(ctx context.Context, action actions.Action, target string, config *ActionRunConfig) {
	ws := requireWorkspace()

	rt, cleanup, err := newRuntime(ctx, ws)
	if err != nil {
		fatal(err, "failed to assemble runtime")
	}
	defer cleanup()

	input, err := ws.Resolve(target)
	if err != nil {
		fatal(err, "failed to resolve item")
	}

	result, err := actions.Run(ctx, rt, action, input, config.Params)
	if err != nil {
		fatal(err, fmt.Sprintf("action %s failed", action.Name()))
	}

	if result == input {
		presenter.Info("Nothing to do for " + input.AbbrevTitle())
		return
	}

	if config.Diff {
		fmt.Print(udiff.Unified(input.StorePath, result.StorePath, input.Body, result.Body))
	}
	presenter.Success("Saved " + result.StorePath)
}
