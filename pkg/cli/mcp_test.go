package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCPServeConfigDefaults(t *testing.T) {
	config := NewMCPServeConfig()

	assert.False(t, config.SSE)
	assert.Equal(t, 8777, config.Port)
}

func TestMCPServeConfigFromFlags(t *testing.T) {
	cmd := newMCPServeCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--sse", "--port", "9200"}))

	config := getMCPServeConfigFromFlags(cmd)
	assert.True(t, config.SSE)
	assert.Equal(t, 9200, config.Port)
}

func TestMCPCommandHasServeSubcommand(t *testing.T) {
	cmd := newMCPCommand()
	assert.Contains(t, commandNames(cmd), "serve")
}

func TestNewMCPRootCommand(t *testing.T) {
	cmd := NewMCPRootCommand()

	assert.Equal(t, "kash-mcp", cmd.Name())
	assert.NotNil(t, cmd.Flags().Lookup("sse"))
	assert.NotNil(t, cmd.Flags().Lookup("port"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("workspace"))
	assert.Contains(t, commandNames(cmd), "version")
}
