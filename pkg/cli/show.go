package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jlevy/kash-media/pkg/presenter"
)

type ShowConfig struct {
	MetaOnly bool
}

func NewShowConfig() *ShowConfig {
	return &ShowConfig{}
}

func getShowConfigFromFlags(cmd *cobra.Command) *ShowConfig {
	config := NewShowConfig()
	if metaOnly, err := cmd.Flags().GetBool("meta"); err == nil {
		config.MetaOnly = metaOnly
	}
	return config
}

func newShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <store-path>",
		Short: "Show a workspace item",
		Long:  `Show an item's metadata and body. The body goes to stdout so it can be piped.`,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			config := getShowConfigFromFlags(cmd)
			runShowCommand(args[0], config)
		},
	}
	cmd.Flags().Bool("meta", false, "Show only the item metadata")
	return cmd
}

func runShowCommand(storePath string, config *ShowConfig) {
	ws := requireWorkspace()

	it, err := ws.Load(storePath)
	if err != nil {
		fatal(err, "failed to load item")
	}

	presenter.Section(it.AbbrevTitle())
	presenter.Info(fmt.Sprintf("Type:   %s (%s)", it.Type, it.Format))
	presenter.Info("Path:   " + it.StorePath)
	if it.URL != "" {
		presenter.Info("URL:    " + it.URL)
	}
	if it.Description != "" {
		presenter.Info("About:  " + it.AbbrevDescription())
	}
	if len(it.DerivedFrom) > 0 {
		presenter.Info("From:   " + strings.Join(it.DerivedFrom, ", "))
	}
	if config.MetaOnly {
		return
	}

	if body := strings.TrimSpace(it.Body); body != "" {
		presenter.Separator()
		fmt.Println(body)
	}
}
