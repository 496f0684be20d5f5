// Package mcp exposes workspace actions as Model Context Protocol tools.
// Every action registered with MCPTool true becomes a tool whose schema
// is the action's params schema plus a required "item" argument naming
// the store path or URL to act on. The server speaks stdio by default
// and SSE when configured with a port.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/types/item"
	"github.com/jlevy/kash-media/pkg/version"
)

// ServerName identifies this server to MCP clients.
const ServerName = "kash-media"

// ServerConfig holds the MCP server transport settings.
type ServerConfig struct {
	SSE  bool
	Port int
}

// NewServerConfig returns the default MCP server configuration.
func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Port: 8777,
	}
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.SSE && (c.Port < 1 || c.Port > 65535) {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// Server serves workspace actions over MCP.
type Server struct {
	config    *ServerConfig
	rt        *actions.Runtime
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server exposing every MCP-flagged action,
// run against the given runtime.
func NewServer(rt *actions.Runtime, config *ServerConfig) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid MCP server configuration")
	}

	s := &Server{
		config: config,
		rt:     rt,
		mcpServer: server.NewMCPServer(
			ServerName,
			version.Get().Version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}

	for _, action := range actions.MCPActions() {
		schema, err := toolSchema(action)
		if err != nil {
			return nil, errors.Wrapf(err, "building schema for action %s", action.Name())
		}
		tool := mcp.NewToolWithRawSchema(action.Name(), action.Description(), schema)
		s.mcpServer.AddTool(tool, s.handler(action))
	}

	return s, nil
}

// toolArgs is the transport-level envelope around an action's params.
type toolArgs struct {
	Item string `mapstructure:"item"`
}

// toolSchema merges the required "item" argument into an action's params
// schema so clients see one flat argument object.
func toolSchema(action actions.Action) (json.RawMessage, error) {
	raw, err := json.Marshal(action.GenerateSchema())
	if err != nil {
		return nil, errors.Wrap(err, "marshalling params schema")
	}

	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, errors.Wrap(err, "reading params schema")
	}

	properties, ok := schema["properties"].(map[string]any)
	if !ok {
		properties = make(map[string]any)
	}
	properties["item"] = map[string]any{
		"type":        "string",
		"description": "Store path or URL of the item to act on",
	}
	schema["properties"] = properties

	required := []any{"item"}
	if existing, ok := schema["required"].([]any); ok {
		required = append(required, existing...)
	}
	schema["required"] = required

	merged, err := json.Marshal(schema)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling merged schema")
	}
	return merged, nil
}

// handler adapts one action into an MCP tool handler. Action failures
// come back as tool errors rather than protocol errors so clients can
// read them.
func (s *Server) handler(action actions.Action) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		var envelope toolArgs
		if err := mapstructure.Decode(args, &envelope); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("bad arguments: %v", err)), nil
		}
		if envelope.Item == "" {
			return mcp.NewToolResultError("missing required argument: item"), nil
		}

		params, err := paramsJSON(args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("bad arguments: %v", err)), nil
		}

		logger.G(ctx).WithFields(logrus.Fields{
			"tool": action.Name(),
			"item": envelope.Item,
		}).Info("MCP tool call")

		result, err := actions.RunAction(ctx, s.rt, action.Name(), envelope.Item, params)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("tool", action.Name()).Warn("MCP tool call failed")
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(resultText(result)), nil
	}
}

// paramsJSON re-encodes the non-item arguments as the action's params.
func paramsJSON(args map[string]any) (string, error) {
	params := make(map[string]any, len(args))
	for k, v := range args {
		if k != "item" {
			params[k] = v
		}
	}
	if len(params) == 0 {
		return "", nil
	}
	out, err := json.Marshal(params)
	if err != nil {
		return "", errors.Wrap(err, "encoding action params")
	}
	return string(out), nil
}

// resultText renders an action result for the client: where the item
// landed, then its body.
func resultText(it *item.Item) string {
	var b strings.Builder
	if it.StorePath != "" {
		fmt.Fprintf(&b, "Saved: %s\n", it.StorePath)
	}
	if it.ExternalPath != "" {
		fmt.Fprintf(&b, "File: %s\n", it.ExternalPath)
	}
	if body := strings.TrimSpace(it.Body); body != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(body)
	}
	if b.Len() == 0 {
		fmt.Fprintf(&b, "Done: %s", it.AbbrevTitle())
	}
	return b.String()
}

// Serve runs the server until the context is cancelled or the client
// disconnects. Stdio is the default transport; SSE binds a local port.
func (s *Server) Serve(ctx context.Context) error {
	if s.config.SSE {
		return s.serveSSE(ctx)
	}
	return s.serveStdio(ctx)
}

func (s *Server) serveStdio(ctx context.Context) error {
	logger.G(ctx).WithField("server", ServerName).Info("Starting MCP server on stdio")

	stdioServer := server.NewStdioServer(s.mcpServer)
	stdioServer.SetErrorLogger(log.New(logger.G(ctx).WriterLevel(logrus.ErrorLevel), "", 0))

	if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "stdio server failed")
	}
	return nil
}

func (s *Server) serveSSE(ctx context.Context) error {
	addr := fmt.Sprintf("localhost:%d", s.config.Port)
	logger.G(ctx).WithField("address", addr).Info("Starting MCP server on SSE")

	sseServer := server.NewSSEServer(s.mcpServer)

	errCh := make(chan error, 1)
	go func() {
		errCh <- sseServer.Start(addr)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "SSE server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return sseServer.Shutdown(shutdownCtx)
	}
}
