package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlevy/kash-media/pkg/wiki"
)

func TestWikiSearchConfigDefaults(t *testing.T) {
	config := NewWikiSearchConfig()

	assert.Equal(t, "en", config.Language)
	assert.Equal(t, wiki.DefaultMaxResults, config.Limit)
}

func TestWikiSearchConfigFromFlags(t *testing.T) {
	cmd := newWikiSearchCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--language", "de", "--limit", "3"}))

	config := getWikiSearchConfigFromFlags(cmd)
	assert.Equal(t, "de", config.Language)
	assert.Equal(t, 3, config.Limit)
}
