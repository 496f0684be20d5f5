package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/mcp"
	"github.com/jlevy/kash-media/pkg/presenter"
)

type MCPServeConfig struct {
	SSE  bool
	Port int
}

func NewMCPServeConfig() *MCPServeConfig {
	defaults := mcp.NewServerConfig()
	return &MCPServeConfig{
		SSE:  defaults.SSE,
		Port: defaults.Port,
	}
}

func getMCPServeConfigFromFlags(cmd *cobra.Command) *MCPServeConfig {
	config := NewMCPServeConfig()

	if sse, err := cmd.Flags().GetBool("sse"); err == nil {
		config.SSE = sse
	}
	if port, err := cmd.Flags().GetInt("port"); err == nil {
		config.Port = port
	}

	return config
}

// NewMCPRootCommand builds the root command for the standalone kash-mcp
// binary: the MCP server with no shell around it.
func NewMCPRootCommand() *cobra.Command {
	defaults := NewMCPServeConfig()
	cmd := &cobra.Command{
		Use:   "kash-mcp",
		Short: "MCP server exposing media-kit actions as tools",
		Long: `kash-mcp serves the media kit's actions over the Model Context
Protocol, for assistants that cannot spawn the full kash-media shell.
It speaks stdio by default and HTTP with SSE under --sse.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initConfig()
			setupLogging()
		},
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()
			config := getMCPServeConfigFromFlags(cmd)
			runMCPServeCommand(ctx, config)
		},
	}
	addGlobalFlags(cmd)
	cmd.Flags().Bool("sse", defaults.SSE, "Serve over HTTP with SSE instead of stdio")
	cmd.Flags().Int("port", defaults.Port, "Port for the SSE server")
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newMCPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Model Context Protocol server",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(newMCPServeCommand())
	return cmd
}

func newMCPServeCommand() *cobra.Command {
	defaults := NewMCPServeConfig()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start an MCP server exposing workspace actions as tools",
		Long: `Start a Model Context Protocol server so assistants can run workspace
actions as tools. Each tool takes an 'item' argument (a store path or
URL) plus the action's own parameters.

By default the server speaks MCP over stdin/stdout, which is what MCP
clients spawn. With --sse it serves HTTP with Server-Sent Events
instead, for clients that connect over the network.`,
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()
			config := getMCPServeConfigFromFlags(cmd)
			runMCPServeCommand(ctx, config)
		},
	}
	cmd.Flags().Bool("sse", defaults.SSE, "Serve over HTTP with SSE instead of stdio")
	cmd.Flags().Int("port", defaults.Port, "Port for the SSE server")
	return cmd
}

func runMCPServeCommand(ctx context.Context, config *MCPServeConfig) {
	ws := requireWorkspace()

	rt, cleanup, err := newRuntime(ctx, ws)
	if err != nil {
		presenter.Error(err, "failed to assemble action runtime")
		os.Exit(1)
	}
	defer cleanup()

	server, err := mcp.NewServer(rt, &mcp.ServerConfig{
		SSE:  config.SSE,
		Port: config.Port,
	})
	if err != nil {
		presenter.Error(err, "failed to create MCP server")
		os.Exit(1)
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if config.SSE {
		presenter.Success(fmt.Sprintf("MCP server listening on http://localhost:%d", config.Port))
		presenter.Info("Press Ctrl+C to stop the server")
	} else {
		// Stdout carries the protocol stream, so keep human output off it.
		logger.G(ctx).WithField("workspace", ws.Root()).Info("MCP server speaking on stdio")
	}

	if err := server.Serve(ctx); err != nil {
		logger.G(ctx).WithError(err).Error("MCP server error")
		presenter.Error(err, "MCP server failed")
		os.Exit(1)
	}

	logger.G(ctx).Info("MCP server stopped")
}
