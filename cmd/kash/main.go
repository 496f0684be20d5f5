package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jlevy/kash-media/pkg/cli"
)

// kash is the base shell: the workspace commands with no kit loaded, so
// no actions are registered. Kits add themselves through a blank import,
// as cmd/kash-media does.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := cli.NewRootCommand(
		"kash",
		"Item workspace shell",
		`kash manages a workspace of items: files with YAML frontmatter
organized under resources/, docs/, configs/, exports/, and assets/.
Install a kit binary such as kash-media for actions that operate on
those items.`,
	)

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
