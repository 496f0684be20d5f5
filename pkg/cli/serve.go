package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/presenter"
	"github.com/jlevy/kash-media/pkg/webgen"
)

// ServeConfig holds configuration for the serve command
type ServeConfig struct {
	Host  string
	Port  int
	Watch bool
}

// NewServeConfig creates a new ServeConfig with default values
func NewServeConfig() *ServeConfig {
	return &ServeConfig{
		Host: "localhost",
		Port: webgen.DefaultPort,
	}
}

// getServeConfigFromFlags extracts serve configuration from command flags
func getServeConfigFromFlags(cmd *cobra.Command) *ServeConfig {
	config := NewServeConfig()

	if host, err := cmd.Flags().GetString("host"); err == nil {
		config.Host = host
	}
	if port, err := cmd.Flags().GetInt("port"); err == nil {
		config.Port = port
	}
	if watch, err := cmd.Flags().GetBool("watch"); err == nil {
		config.Watch = watch
	}

	return config
}

func newServeCommand() *cobra.Command {
	defaults := NewServeConfig()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a local web server for browsing the workspace",
		Long: fmt.Sprintf(`Start a local web server that renders workspace items as web pages.
Gallery configs render as video galleries, exports and assets are
served as-is, and everything else gets a simple item page.

The server will be available at http://localhost:%d by default. With
--watch, edits to gallery configs regenerate their exports on the fly.`, webgen.DefaultPort),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			config := getServeConfigFromFlags(cmd)
			runServeCommand(ctx, config)
		},
	}
	cmd.Flags().String("host", defaults.Host, "Host to bind the web server to")
	cmd.Flags().Int("port", defaults.Port, "Port to bind the web server to")
	cmd.Flags().Bool("watch", defaults.Watch, "Regenerate gallery exports when their configs change")
	return cmd
}

// runServeCommand starts the workspace preview server
func runServeCommand(ctx context.Context, config *ServeConfig) {
	ws := requireWorkspace()

	server, err := webgen.NewServer(ws, &webgen.ServerConfig{
		Host:  config.Host,
		Port:  config.Port,
		Watch: config.Watch,
	})
	if err != nil {
		presenter.Error(err, "invalid server configuration")
		os.Exit(1)
	}

	// Create a context that cancels on interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	presenter.Info("Press Ctrl+C to stop the server")
	if err := server.Start(ctx); err != nil {
		logger.G(ctx).WithError(err).Error("web server error")
		presenter.Error(err, "web server failed")
		os.Exit(1)
	}

	presenter.Info("Web server stopped")
}
