package cache

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/logger"
)

const maxAPIResponseSize = 32 << 20 // 32 MiB

// CacheAPIResponse fetches url with a GET request, caching the body for
// ttl. It returns the body and whether it was served from cache. A ttl
// of zero caches without expiry.
func (c *Cache) CacheAPIResponse(ctx context.Context, url string, ttl time.Duration) ([]byte, bool, error) {
	key := "api:" + keyDigest(url)

	if entry, ok := c.lookup(ctx, key); ok {
		body, err := os.ReadFile(entry.Path)
		if err == nil {
			c.touch(ctx, key)
			logger.G(ctx).WithField("url", url).Debug("API cache hit")
			return body, true, nil
		}
		logger.G(ctx).WithField("path", entry.Path).WithError(err).Warn("failed to read cached response, refetching")
	}

	body, contentType, err := c.fetch(ctx, url)
	if err != nil {
		return nil, false, err
	}

	digest := keyDigest(url)
	cachedPath := c.objectPath(digest, extForContentType(contentType))
	if err := writeFileAtomic(cachedPath, bytes.NewReader(body)); err != nil {
		return nil, false, err
	}

	entry := Entry{
		Key:         key,
		Source:      url,
		Path:        cachedPath,
		ContentType: contentType,
		Size:        int64(len(body)),
	}
	if ttl > 0 {
		expires := time.Now().UTC().Add(ttl)
		entry.ExpiresAt = &expires
	}
	if err := c.upsert(ctx, entry); err != nil {
		return nil, false, err
	}
	return body, false, nil
}

func (c *Cache) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to build request for %s", url)
	}
	req.Header.Set("User-Agent", "kash-media/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", errors.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseSize))
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to read response from %s", url)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func extForContentType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "application/json"):
		return ".json"
	case strings.HasPrefix(contentType, "text/html"):
		return ".html"
	case strings.HasPrefix(contentType, "text/"):
		return ".txt"
	case strings.HasPrefix(contentType, "image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(contentType, "image/png"):
		return ".png"
	default:
		return ".bin"
	}
}
