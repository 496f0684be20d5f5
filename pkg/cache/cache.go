// Package cache is the kit's content cache: downloaded media, fetched API
// responses, and captured frames live under one content-addressed
// directory with a SQLite index tracking size, expiry, and usage.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/db"
	"github.com/jlevy/kash-media/pkg/db/migrations"
	"github.com/jlevy/kash-media/pkg/media"
)

const (
	// EnvCacheDir overrides the default cache location.
	EnvCacheDir = "KASH_CACHE_DIR"

	indexFile  = "cache.db"
	objectsDir = "objects"
	tmpDir     = "tmp"

	defaultHTTPTimeout = 30 * time.Second
)

// Cache is a content-addressed file cache with a SQLite index.
type Cache struct {
	root       string
	db         *sqlx.DB
	registry   *media.Registry
	httpClient *http.Client
	maxBytes   int64
}

// Entry is one indexed cache row.
type Entry struct {
	Key         string     `db:"key"`
	Source      string     `db:"source"`
	Path        string     `db:"path"`
	ContentType string     `db:"content_type"`
	Size        int64      `db:"size"`
	CreatedAt   time.Time  `db:"created_at"`
	LastAccess  time.Time  `db:"last_access"`
	ExpiresAt   *time.Time `db:"expires_at"`
	Hits        int64      `db:"hits"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithRegistry sets the media service registry used for media downloads.
func WithRegistry(reg *media.Registry) Option {
	return func(c *Cache) { c.registry = reg }
}

// WithHTTPClient sets the client used for API response caching.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) { c.httpClient = client }
}

// WithMaxBytes sets the size budget enforced by Prune. Zero means no
// budget.
func WithMaxBytes(n int64) Option {
	return func(c *Cache) { c.maxBytes = n }
}

// DefaultRoot returns the cache directory: KASH_CACHE_DIR when set,
// otherwise $HOME/.kash/cache.
func DefaultRoot() (string, error) {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, ".kash", "cache"), nil
}

// Open opens the cache rooted at root, creating the directory and index
// and running migrations as needed.
func Open(ctx context.Context, root string, opts ...Option) (*Cache, error) {
	if err := os.MkdirAll(filepath.Join(root, objectsDir), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create cache directory")
	}

	database, err := db.Open(ctx, filepath.Join(root, indexFile))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open cache index")
	}

	runner := db.NewMigrationRunner(database)
	if err := runner.Run(ctx, migrations.All()); err != nil {
		database.Close()
		return nil, errors.Wrap(err, "failed to migrate cache index")
	}

	c := &Cache{
		root:       root,
		db:         database,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the cache index.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Root returns the cache directory.
func (c *Cache) Root() string {
	return c.root
}

// CacheFile copies the file at path into the cache, addressed by its
// content digest, and returns the cached path. Re-caching identical
// content is a no-op returning the existing path.
func (c *Cache) CacheFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	hasher := sha256.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return "", errors.Wrapf(err, "failed to digest %s", path)
	}
	digest := hex.EncodeToString(hasher.Sum(nil))

	ext := filepath.Ext(path)
	cachedPath := c.objectPath(digest, ext)
	if _, statErr := os.Stat(cachedPath); statErr != nil {
		if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
			return "", errors.Wrap(seekErr, "failed to rewind source file")
		}
		if copyErr := writeFileAtomic(cachedPath, f); copyErr != nil {
			return "", copyErr
		}
	}

	entry := Entry{
		Key:         "sha256:" + digest,
		Source:      path,
		Path:        cachedPath,
		ContentType: mime.TypeByExtension(ext),
		Size:        size,
	}
	if err := c.upsert(ctx, entry); err != nil {
		return "", err
	}
	return cachedPath, nil
}

// objectPath fans content out into two-level digest-prefix directories.
func (c *Cache) objectPath(digest, ext string) string {
	return filepath.Join(c.root, objectsDir, digest[:2], digest[2:4], digest+ext)
}

func (c *Cache) upsert(ctx context.Context, entry Entry) error {
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.LastAccess = now
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, source, path, content_type, size, created_at, last_access, expires_at, hits)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(key) DO UPDATE SET
			source = excluded.source,
			path = excluded.path,
			content_type = excluded.content_type,
			size = excluded.size,
			last_access = excluded.last_access,
			expires_at = excluded.expires_at
	`, entry.Key, entry.Source, entry.Path, entry.ContentType, entry.Size,
		entry.CreatedAt, entry.LastAccess, entry.ExpiresAt)
	return errors.Wrapf(err, "failed to index cache entry %s", entry.Key)
}

// lookup returns the entry for key when its file still exists and it has
// not expired.
func (c *Cache) lookup(ctx context.Context, key string) (*Entry, bool) {
	var entry Entry
	err := c.db.GetContext(ctx, &entry, "SELECT * FROM cache_entries WHERE key = ?", key)
	if err != nil {
		return nil, false
	}
	if entry.ExpiresAt != nil && !entry.ExpiresAt.After(time.Now().UTC()) {
		return nil, false
	}
	if _, err := os.Stat(entry.Path); err != nil {
		return nil, false
	}
	return &entry, true
}

// touch records a cache hit.
func (c *Cache) touch(ctx context.Context, key string) {
	_, _ = c.db.ExecContext(ctx,
		"UPDATE cache_entries SET hits = hits + 1, last_access = ? WHERE key = ?",
		time.Now().UTC(), key)
}

func keyDigest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// writeFileAtomic writes r to path via a temp file rename.
func writeFileAtomic(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create cache object directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write cache object")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close cache object")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "failed to move cache object into place")
}

func (c *Cache) tempDir() (string, error) {
	dir := filepath.Join(c.root, tmpDir, fmt.Sprintf("dl-%d", time.Now().UnixNano()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create cache temp directory")
	}
	return dir, nil
}
