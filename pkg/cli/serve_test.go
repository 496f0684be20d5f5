package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlevy/kash-media/pkg/webgen"
)

func TestServeConfigDefaults(t *testing.T) {
	config := NewServeConfig()

	assert.Equal(t, "localhost", config.Host)
	assert.Equal(t, webgen.DefaultPort, config.Port)
	assert.False(t, config.Watch)
}

func TestServeConfigFromFlags(t *testing.T) {
	cmd := newServeCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--host", "0.0.0.0", "--port", "9090", "--watch"}))

	config := getServeConfigFromFlags(cmd)
	assert.Equal(t, "0.0.0.0", config.Host)
	assert.Equal(t, 9090, config.Port)
	assert.True(t, config.Watch)
}
