package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/types/item"
	"github.com/jlevy/kash-media/pkg/workspace"
)

type uppercaseParams struct {
	Prefix string `json:"prefix,omitempty" jsonschema:"description=Text prepended to the result"`
}

// uppercaseAction is a minimal MCP-flagged action used to exercise the
// server end to end without the full kit.
type uppercaseAction struct{}

func (a *uppercaseAction) Name() string        { return "uppercase" }
func (a *uppercaseAction) Description() string { return "Uppercase the item body." }
func (a *uppercaseAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[uppercaseParams]()
}
func (a *uppercaseAction) Precondition() *actions.Precondition { return nil }
func (a *uppercaseAction) MCPTool() bool                       { return true }

func (a *uppercaseAction) Execute(ctx context.Context, rt *actions.Runtime, input *item.Item, params string) (*item.Item, error) {
	var p uppercaseParams
	if err := actions.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}
	return input.DerivedCopy(item.TypeDoc,
		item.WithBody(p.Prefix+strings.ToUpper(input.Body)),
	), nil
}

func init() {
	actions.Register(&uppercaseAction{})
}

func mcpRuntime(t *testing.T) *actions.Runtime {
	t.Helper()
	ws, err := workspace.Init(t.TempDir())
	require.NoError(t, err)
	return &actions.Runtime{Workspace: ws}
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	action, ok := actions.Get(name)
	require.True(t, ok)

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := s.handler(action)(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	return result
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestServerConfigValidate(t *testing.T) {
	assert.NoError(t, NewServerConfig().Validate())
	assert.NoError(t, (&ServerConfig{}).Validate())

	err := (&ServerConfig{SSE: true}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port must be between")
}

func TestToolSchemaInjectsItem(t *testing.T) {
	raw, err := toolSchema(&uppercaseAction{})
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))

	properties, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, properties, "item")
	assert.Contains(t, properties, "prefix")

	required, ok := schema["required"].([]any)
	require.True(t, ok)
	assert.Contains(t, required, "item")
}

func TestHandlerRunsAction(t *testing.T) {
	rt := mcpRuntime(t)
	doc := item.New(item.TypeDoc,
		item.WithTitle("Greeting"),
		item.WithFormat(item.FormatMarkdown),
		item.WithBody("hello world"),
	)
	storePath, err := rt.Workspace.Save(doc)
	require.NoError(t, err)

	s, err := NewServer(rt, NewServerConfig())
	require.NoError(t, err)

	result := callTool(t, s, "uppercase", map[string]any{"item": storePath})
	assert.False(t, result.IsError)

	text := textOf(t, result)
	assert.Contains(t, text, "Saved: docs/")
	assert.Contains(t, text, "HELLO WORLD")
}

func TestHandlerPassesParams(t *testing.T) {
	rt := mcpRuntime(t)
	doc := item.New(item.TypeDoc,
		item.WithTitle("Greeting"),
		item.WithFormat(item.FormatMarkdown),
		item.WithBody("hello"),
	)
	storePath, err := rt.Workspace.Save(doc)
	require.NoError(t, err)

	s, err := NewServer(rt, NewServerConfig())
	require.NoError(t, err)

	result := callTool(t, s, "uppercase", map[string]any{
		"item":   storePath,
		"prefix": "Shout: ",
	})
	assert.False(t, result.IsError)
	assert.Contains(t, textOf(t, result), "Shout: HELLO")
}

func TestHandlerMissingItem(t *testing.T) {
	s, err := NewServer(mcpRuntime(t), NewServerConfig())
	require.NoError(t, err)

	result := callTool(t, s, "uppercase", map[string]any{"prefix": "x"})
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "missing required argument: item")
}

func TestHandlerActionFailure(t *testing.T) {
	s, err := NewServer(mcpRuntime(t), NewServerConfig())
	require.NoError(t, err)

	result := callTool(t, s, "uppercase", map[string]any{"item": "docs/does-not-exist.md"})
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "does-not-exist")
}

func TestResultText(t *testing.T) {
	saved := &item.Item{StorePath: "docs/notes.md", Body: "the body\n"}
	text := resultText(saved)
	assert.Contains(t, text, "Saved: docs/notes.md")
	assert.Contains(t, text, "the body")

	file := &item.Item{StorePath: "resources/talk.mp3", ExternalPath: "/tmp/talk.mp3"}
	text = resultText(file)
	assert.Contains(t, text, "Saved: resources/talk.mp3")
	assert.Contains(t, text, "File: /tmp/talk.mp3")

	bare := &item.Item{Title: "Untouched"}
	assert.Contains(t, resultText(bare), "Untouched")
}

func TestParamsJSON(t *testing.T) {
	out, err := paramsJSON(map[string]any{"item": "docs/a.md"})
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = paramsJSON(map[string]any{"item": "docs/a.md", "prefix": "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"prefix":"x"}`, out)
}
