package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAllowlist(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "allowed_domains.txt")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
	return path
}

func TestDomainFilterAllows(t *testing.T) {
	path := writeAllowlist(t, `
# hosts for this workspace
youtube.com
https://vimeo.com/somepath
*.example.org
`)
	df := NewDomainFilter(path)

	tests := []struct {
		url     string
		allowed bool
	}{
		{"https://www.youtube.com/watch?v=abc123xyz00", true},
		{"https://youtube.com/watch?v=abc123xyz00", true},
		{"https://youtu.be/abc123xyz00", false},
		{"https://vimeo.com/12345", true},
		{"https://media.example.org/feed", true},
		{"https://example.org/feed", false},
		{"https://podcasts.apple.com/podcast/id1", false},
	}
	for _, tt := range tests {
		ok, err := df.Allows(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.allowed, ok, tt.url)
	}
}

func TestDomainFilterEmptyAllowsAll(t *testing.T) {
	df := NewDomainFilter(filepath.Join(t.TempDir(), "missing.txt"))
	ok, err := df.Allows("https://anything.example.com/x")
	require.NoError(t, err)
	assert.True(t, ok)

	df = NewDomainFilter(writeAllowlist(t, "# only comments\n\n"))
	ok, err = df.Allows("https://anything.example.com/x")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNormalizeHost(t *testing.T) {
	assert.Equal(t, "youtube.com", normalizeHost("  YouTube.com  "))
	assert.Equal(t, "vimeo.com", normalizeHost("https://Vimeo.com/somepath"))
	assert.Equal(t, "example.org", normalizeHost("example.org/path"))
	assert.Equal(t, "*.example.org", normalizeHost("*.example.org"))
	assert.Equal(t, "", normalizeHost("# comment"))
	assert.Equal(t, "", normalizeHost("   "))
}

func TestRegistryCheckURLAllowed(t *testing.T) {
	reg := DefaultRegistry(nil)

	// No filter installed.
	require.NoError(t, reg.CheckURLAllowed("https://www.youtube.com/watch?v=abc123xyz00"))

	reg.SetDomainFilter(NewDomainFilter(writeAllowlist(t, "youtube.com\n")))
	require.NoError(t, reg.CheckURLAllowed("https://www.youtube.com/watch?v=abc123xyz00"))

	err := reg.CheckURLAllowed("https://vimeo.com/12345")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDomainBlocked))
}
