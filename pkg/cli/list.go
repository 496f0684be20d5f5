package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jlevy/kash-media/pkg/presenter"
)

type ListConfig struct {
	Pattern string
}

func NewListConfig() *ListConfig {
	return &ListConfig{}
}

func getListConfigFromFlags(cmd *cobra.Command, args []string) *ListConfig {
	config := NewListConfig()
	if len(args) > 0 {
		config.Pattern = args[0]
	}
	return config
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [pattern]",
		Short: "List workspace items",
		Long: `List the store paths of workspace items, optionally filtered by a
glob pattern such as 'docs/**' or '**/*.md'.`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			config := getListConfigFromFlags(cmd, args)
			runListCommand(config)
		},
	}
}

func runListCommand(config *ListConfig) {
	ws := requireWorkspace()

	paths, err := ws.List(config.Pattern)
	if err != nil {
		fatal(err, "failed to list items")
	}
	if len(paths) == 0 {
		presenter.Info("No items found")
		return
	}
	for _, p := range paths {
		fmt.Println(p)
	}
}
