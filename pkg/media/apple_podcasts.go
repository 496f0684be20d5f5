package media

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/media/ytdlp"
	mediatypes "github.com/jlevy/kash-media/pkg/types/media"
)

// ServiceNameApplePodcasts identifies Apple Podcasts in metadata.
const ServiceNameApplePodcasts = "apple_podcasts"

// ApplePodcasts recognizes podcasts.apple.com and itunes.apple.com URLs.
//
// Episode URLs carry a podcast id in the path and an episode id in the
// query, e.g.
// https://podcasts.apple.com/us/podcast/some-title/id1303792223?i=1000394194840
// which is equivalent to
// https://podcasts.apple.com/podcast/id1303792223?i=1000394194840
type ApplePodcasts struct {
	runner *ytdlp.Runner
}

// NewApplePodcasts returns the Apple Podcasts service backed by the given
// runner.
func NewApplePodcasts(runner *ytdlp.Runner) *ApplePodcasts {
	return &ApplePodcasts{runner: runner}
}

// Name implements Service.
func (a *ApplePodcasts) Name() string { return ServiceNameApplePodcasts }

// CanonicalizeAndType implements Service. URLs with an episode id are
// episodes; show URLs without one are podcasts.
func (a *ApplePodcasts) CanonicalizeAndType(rawURL string) (string, mediatypes.URLType) {
	podcastID, episodeID, ok := a.parse(rawURL)
	if !ok {
		return "", ""
	}
	if episodeID != "" {
		return fmt.Sprintf("https://podcasts.apple.com/podcast/%s?i=%s", podcastID, episodeID),
			mediatypes.URLTypeEpisode
	}
	return "https://podcasts.apple.com/podcast/" + podcastID, mediatypes.URLTypePodcast
}

// MediaID implements Service. Only episode URLs have media IDs, of the
// form "id<podcast>?i=<episode>".
func (a *ApplePodcasts) MediaID(rawURL string) string {
	podcastID, episodeID, ok := a.parse(rawURL)
	if !ok || episodeID == "" {
		return ""
	}
	return fmt.Sprintf("%s?i=%s", podcastID, episodeID)
}

func (a *ApplePodcasts) parse(rawURL string) (podcastID, episodeID string, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != "podcasts.apple.com" && host != "itunes.apple.com" {
		return "", "", false
	}
	for _, part := range strings.Split(u.Path, "/") {
		if strings.HasPrefix(part, "id") && len(part) > 2 {
			return part, u.Query().Get("i"), true
		}
	}
	return "", "", false
}

// Metadata implements Service.
func (a *ApplePodcasts) Metadata(ctx context.Context, rawURL string) (*mediatypes.Metadata, error) {
	canon, _ := a.CanonicalizeAndType(rawURL)
	if canon == "" {
		return nil, errors.Wrapf(ErrUnknownService, "not an Apple Podcasts URL: %s", rawURL)
	}
	info, err := a.runner.ExtractInfo(ctx, canon)
	if err != nil {
		return nil, err
	}
	return parseMetadata(ctx, info, ServiceNameApplePodcasts)
}

// ThumbnailURL implements Service. Apple Podcasts has no static thumbnail
// URL shape, so this fetches metadata and is empty on failure.
func (a *ApplePodcasts) ThumbnailURL(ctx context.Context, rawURL string) string {
	meta, err := a.Metadata(ctx, rawURL)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("could not fetch podcast thumbnail, omitting")
		return ""
	}
	return meta.ThumbnailURL
}

// TimestampURL implements Service. Apple Podcasts does not support
// timestamp links, so the input URL comes back unchanged.
func (a *ApplePodcasts) TimestampURL(rawURL string, _ float64) string {
	return rawURL
}

// Download implements Service.
func (a *ApplePodcasts) Download(ctx context.Context, rawURL, destDir string, opts ytdlp.DownloadOptions) (map[mediatypes.Type]string, error) {
	canon, _ := a.CanonicalizeAndType(rawURL)
	if canon == "" {
		return nil, errors.Wrapf(ErrUnknownService, "not an Apple Podcasts URL: %s", rawURL)
	}
	return a.runner.Download(ctx, canon, destDir, opts)
}

// ListChannelItems implements Service, listing the episodes of a show.
func (a *ApplePodcasts) ListChannelItems(ctx context.Context, rawURL string) ([]*mediatypes.Metadata, error) {
	canon, _ := a.CanonicalizeAndType(rawURL)
	if canon == "" {
		return nil, errors.Wrapf(ErrUnknownService, "not an Apple Podcasts URL: %s", rawURL)
	}
	info, err := a.runner.ExtractInfo(ctx, canon)
	if err != nil {
		return nil, err
	}

	entries := entriesOf(info)
	if entries == nil {
		logger.G(ctx).WithField("url", canon).Warn("no episodes found in the podcast")
		return nil, nil
	}

	episodes := make([]*mediatypes.Metadata, 0, len(entries))
	for _, entry := range entries {
		meta, err := parseMetadata(ctx, entry, ServiceNameApplePodcasts)
		if err != nil {
			logger.G(ctx).WithError(err).Warn("skipping unparseable episode entry")
			continue
		}
		episodes = append(episodes, meta)
	}
	logger.G(ctx).WithField("url", canon).WithField("count", len(episodes)).Info("found episodes in podcast")
	return episodes, nil
}
