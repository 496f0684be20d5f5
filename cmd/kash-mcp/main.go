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

	if err := cli.NewMCPRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
