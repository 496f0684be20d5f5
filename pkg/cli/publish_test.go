package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlevy/kash-media/pkg/workspace"
)

func TestPublishConfigDefaults(t *testing.T) {
	config := NewPublishConfig()

	assert.Empty(t, config.Bucket)
	assert.Empty(t, config.Prefix)
	assert.Empty(t, config.Include)
	assert.Empty(t, config.Exclude)
}

func TestPublishConfigFromViper(t *testing.T) {
	viper.Set("publish.bucket", "kash-site")
	viper.Set("publish.region", "us-east-1")
	t.Cleanup(func() {
		viper.Set("publish.bucket", "")
		viper.Set("publish.region", "")
	})

	config := NewPublishConfig()
	assert.Equal(t, "kash-site", config.Bucket)
	assert.Equal(t, "us-east-1", config.Region)
}

func TestPublishConfigFromFlags(t *testing.T) {
	cmd := newPublishCommand()
	require.NoError(t, cmd.ParseFlags([]string{
		"--bucket", "my-bucket",
		"--prefix", "site/v2",
		"--endpoint", "http://localhost:9000",
		"--include", "**/*.html",
		"--exclude", "**/draft-*",
	}))

	config := getPublishConfigFromFlags(cmd)
	assert.Equal(t, "my-bucket", config.Bucket)
	assert.Equal(t, "site/v2", config.Prefix)
	assert.Equal(t, "http://localhost:9000", config.Endpoint)
	assert.Equal(t, "**/*.html", config.Include)
	assert.Equal(t, "**/draft-*", config.Exclude)
}

func TestResolvePublishPathLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<html></html>"), 0o644))

	assert.Equal(t, path, resolvePublishPath(path))
}

func TestResolvePublishPathStorePath(t *testing.T) {
	dir := t.TempDir()
	_, err := workspace.Init(dir)
	require.NoError(t, err)

	exports := filepath.Join(dir, "exports")
	require.NoError(t, os.MkdirAll(exports, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(exports, "talks.html"), []byte("<html></html>"), 0o644))

	viper.Set("workspace", dir)
	t.Cleanup(func() { viper.Set("workspace", "") })

	resolved := resolvePublishPath("exports/talks.html")
	assert.Equal(t, filepath.Join(dir, "exports", "talks.html"), resolved)
}

func TestResolvePublishPathMissing(t *testing.T) {
	viper.Set("workspace", t.TempDir())
	t.Cleanup(func() { viper.Set("workspace", "") })

	assert.Equal(t, "no/such/file.html", resolvePublishPath("no/such/file.html"))
}
