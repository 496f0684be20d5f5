package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jlevy/kash-media/pkg/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Long:  `Print the version information in JSON format.`,
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			json, err := info.JSON()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error formatting version info: %s\n", err)
				os.Exit(1)
			}
			fmt.Println(json)
		},
	}
}
