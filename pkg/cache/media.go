package cache

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/media/ytdlp"
	mediatypes "github.com/jlevy/kash-media/pkg/types/media"
)

// CacheMedia downloads url in the requested media types, caching each
// result. Already-cached types are served without downloading. The
// returned map has one cached path per media type.
func (c *Cache) CacheMedia(ctx context.Context, url string, want []mediatypes.Type) (map[mediatypes.Type]string, error) {
	if c.registry == nil {
		return nil, errors.New("cache has no media registry configured")
	}
	if len(want) == 0 {
		want = []mediatypes.Type{mediatypes.TypeAudio, mediatypes.TypeVideo}
	}

	canon, _ := c.registry.Canonicalize(url)

	result := make(map[mediatypes.Type]string, len(want))
	missing := make([]mediatypes.Type, 0, len(want))
	for _, mt := range want {
		key := mediaKey(canon, mt)
		if entry, ok := c.lookup(ctx, key); ok {
			c.touch(ctx, key)
			result[mt] = entry.Path
			continue
		}
		missing = append(missing, mt)
	}
	if len(missing) == 0 {
		logger.G(ctx).WithField("url", canon).Debug("media cache hit")
		return result, nil
	}

	// Cache hits above are always served; the allowlist only gates new
	// downloads.
	if err := c.registry.CheckURLAllowed(canon); err != nil {
		return nil, err
	}

	service, err := c.registry.ServiceFor(canon)
	if err != nil {
		return nil, err
	}

	tmp, err := c.tempDir()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	downloaded, err := service.Download(ctx, canon, tmp, ytdlp.DownloadOptions{MediaTypes: missing})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download %s", canon)
	}

	for mt, path := range downloaded {
		cachedPath, err := c.CacheFile(ctx, path)
		if err != nil {
			return nil, err
		}
		if err := c.alias(ctx, mediaKey(canon, mt), canon, cachedPath); err != nil {
			return nil, err
		}
		result[mt] = cachedPath
	}
	return result, nil
}

// CacheResource downloads the file at url into the cache and returns the
// cached path. Unlike CacheMedia this is a plain HTTP fetch, for
// thumbnails and other simple resources.
func (c *Cache) CacheResource(ctx context.Context, url string) (string, error) {
	key := "resource:" + keyDigest(url)
	if entry, ok := c.lookup(ctx, key); ok {
		c.touch(ctx, key)
		return entry.Path, nil
	}

	if c.registry != nil {
		if err := c.registry.CheckURLAllowed(url); err != nil {
			return "", err
		}
	}

	body, contentType, err := c.fetch(ctx, url)
	if err != nil {
		return "", err
	}

	ext := extForContentType(contentType)
	if byURL := filepath.Ext(url); byURL != "" && len(byURL) <= 5 {
		ext = byURL
	}
	cachedPath := c.objectPath(keyDigest(url), ext)
	if err := writeFileAtomic(cachedPath, bytes.NewReader(body)); err != nil {
		return "", err
	}

	entry := Entry{
		Key:         key,
		Source:      url,
		Path:        cachedPath,
		ContentType: contentType,
		Size:        int64(len(body)),
	}
	if err := c.upsert(ctx, entry); err != nil {
		return "", err
	}
	return cachedPath, nil
}

// alias indexes an already-cached file under an additional key.
func (c *Cache) alias(ctx context.Context, key, source, cachedPath string) error {
	info, err := os.Stat(cachedPath)
	if err != nil {
		return errors.Wrapf(err, "failed to stat cached file %s", cachedPath)
	}
	return c.upsert(ctx, Entry{
		Key:    key,
		Source: source,
		Path:   cachedPath,
		Size:   info.Size(),
	})
}

func mediaKey(canonicalURL string, mt mediatypes.Type) string {
	return "media:" + string(mt) + ":" + keyDigest(canonicalURL)
}
