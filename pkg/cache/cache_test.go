package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()
	c, err := Open(context.Background(), t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestDefaultRoot(t *testing.T) {
	t.Setenv(EnvCacheDir, "/tmp/custom-cache")
	root, err := DefaultRoot()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-cache", root)

	t.Setenv(EnvCacheDir, "")
	root, err = DefaultRoot()
	require.NoError(t, err)
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".kash", "cache"), root)
}

func TestCacheFile(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(src, []byte("audio bytes"), 0o644))

	cached, err := c.CacheFile(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, ".mp3", filepath.Ext(cached))

	content, err := os.ReadFile(cached)
	require.NoError(t, err)
	assert.Equal(t, []byte("audio bytes"), content)

	// Identical content lands on the same path.
	again, err := c.CacheFile(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, cached, again)

	info, err := c.Stat(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Entries)
	assert.Equal(t, int64(len("audio bytes")), info.TotalSize)
}

func TestCacheFileMissingSource(t *testing.T) {
	c := openTestCache(t)
	_, err := c.CacheFile(context.Background(), "/nonexistent/file.mp4")
	assert.Error(t, err)
}

func TestCacheAPIResponse(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"Test Video"}`))
	}))
	defer server.Close()

	c := openTestCache(t)
	ctx := context.Background()

	body, wasCached, err := c.CacheAPIResponse(ctx, server.URL, time.Hour)
	require.NoError(t, err)
	assert.False(t, wasCached)
	assert.JSONEq(t, `{"title":"Test Video"}`, string(body))

	body, wasCached, err = c.CacheAPIResponse(ctx, server.URL, time.Hour)
	require.NoError(t, err)
	assert.True(t, wasCached)
	assert.JSONEq(t, `{"title":"Test Video"}`, string(body))

	assert.Equal(t, int64(1), requests.Load())
}

func TestCacheAPIResponseExpiry(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	c := openTestCache(t)
	ctx := context.Background()

	_, _, err := c.CacheAPIResponse(ctx, server.URL, 30*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	_, wasCached, err := c.CacheAPIResponse(ctx, server.URL, 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, wasCached)
	assert.Equal(t, int64(2), requests.Load())
}

func TestCacheAPIResponseErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := openTestCache(t)
	_, _, err := c.CacheAPIResponse(context.Background(), server.URL, time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestCacheResource(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg bytes"))
	}))
	defer server.Close()

	c := openTestCache(t)
	ctx := context.Background()

	path, err := c.CacheResource(ctx, server.URL+"/thumb.jpg")
	require.NoError(t, err)
	assert.Equal(t, ".jpg", filepath.Ext(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), content)

	again, err := c.CacheResource(ctx, server.URL+"/thumb.jpg")
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Equal(t, int64(1), requests.Load())
}

func TestPruneExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("stale"))
	}))
	defer server.Close()

	c := openTestCache(t)
	ctx := context.Background()

	_, _, err := c.CacheAPIResponse(ctx, server.URL, time.Hour)
	require.NoError(t, err)

	// Backdate the expiry so the entry is stale.
	past := time.Now().UTC().Add(-time.Minute)
	_, err = c.db.ExecContext(ctx, "UPDATE cache_entries SET expires_at = ?", past)
	require.NoError(t, err)

	var entry Entry
	require.NoError(t, c.db.GetContext(ctx, &entry, "SELECT * FROM cache_entries LIMIT 1"))

	result, err := c.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.EntriesRemoved)
	assert.Equal(t, int64(len("stale")), result.BytesFreed)

	_, statErr := os.Stat(entry.Path)
	assert.True(t, os.IsNotExist(statErr))

	info, err := c.Stat(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, info.Entries)
}

func TestPruneLRU(t *testing.T) {
	c := openTestCache(t, WithMaxBytes(15))
	ctx := context.Background()

	dir := t.TempDir()
	oldFile := filepath.Join(dir, "old.txt")
	newFile := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(oldFile, []byte("0123456789"), 0o644))
	require.NoError(t, os.WriteFile(newFile, []byte("abcdefghij"), 0o644))

	oldPath, err := c.CacheFile(ctx, oldFile)
	require.NoError(t, err)
	newPath, err := c.CacheFile(ctx, newFile)
	require.NoError(t, err)

	// Make the first entry the least recently used.
	_, err = c.db.ExecContext(ctx,
		"UPDATE cache_entries SET last_access = ? WHERE path = ?",
		time.Now().UTC().Add(-time.Hour), oldPath)
	require.NoError(t, err)

	result, err := c.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.EntriesRemoved)

	_, statErr := os.Stat(oldPath)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(newPath)
	assert.NoError(t, statErr)
}

func TestPruneNoBudgetKeepsFresh(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "keep.txt")
	require.NoError(t, os.WriteFile(src, []byte("fresh"), 0o644))
	_, err := c.CacheFile(ctx, src)
	require.NoError(t, err)

	result, err := c.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.EntriesRemoved)

	info, err := c.Stat(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Entries)
}
