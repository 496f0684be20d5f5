package cli

import (
	"github.com/spf13/cobra"

	"github.com/jlevy/kash-media/pkg/presenter"
	"github.com/jlevy/kash-media/pkg/workspace"
)

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a workspace",
		Long: `Create a workspace in the given directory (default: the current one).

A workspace is a directory with a .kash/ marker where items are stored:
resources, derived documents, configs, exports, and assets. Initializing
an existing workspace is a no-op.`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			ws, err := workspace.Init(dir)
			if err != nil {
				fatal(err, "failed to initialize workspace")
			}
			presenter.Success("Initialized workspace at " + ws.Root())
		},
	}
}
