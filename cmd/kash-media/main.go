package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jlevy/kash-media/pkg/cli"
	_ "github.com/jlevy/kash-media/pkg/kit"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := cli.NewRootCommand(
		"kash-media",
		"Media kit shell for the kash workspace",
		`kash-media is the kash shell with the media kit loaded: actions for
downloading, transcribing, and editing media transcripts, plus caching,
Wikipedia lookup, video galleries, S3 publishing, a local preview
server, and an MCP server.

Run an action on an item with 'kash-media <action> <item>', where the
item is a store path inside the workspace or a URL.`,
	)
	cli.AddMediaCommands(root)

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
