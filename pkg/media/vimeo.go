package media

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/media/ytdlp"
	mediatypes "github.com/jlevy/kash-media/pkg/types/media"
)

// ServiceNameVimeo identifies Vimeo in metadata.
const ServiceNameVimeo = "vimeo"

var vimeoVideoIDRe = regexp.MustCompile(`^[0-9]+$`)

// Vimeo recognizes vimeo.com and player.vimeo.com URLs.
type Vimeo struct {
	runner *ytdlp.Runner
}

// NewVimeo returns the Vimeo service backed by the given runner.
func NewVimeo(runner *ytdlp.Runner) *Vimeo {
	return &Vimeo{runner: runner}
}

// Name implements Service.
func (v *Vimeo) Name() string { return ServiceNameVimeo }

// CanonicalizeAndType implements Service. Video page and player URLs
// canonicalize to the numeric video page.
func (v *Vimeo) CanonicalizeAndType(rawURL string) (string, mediatypes.URLType) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ""
	}

	host := strings.ToLower(u.Hostname())
	path := strings.Trim(u.Path, "/")
	parts := strings.Split(path, "/")

	switch host {
	case "player.vimeo.com":
		if len(parts) >= 2 && parts[0] == "video" && vimeoVideoIDRe.MatchString(parts[1]) {
			return "https://vimeo.com/" + parts[1], mediatypes.URLTypeVideo
		}
	case "vimeo.com", "www.vimeo.com":
		if len(parts) == 0 || parts[0] == "" {
			return "", ""
		}
		switch {
		case vimeoVideoIDRe.MatchString(parts[0]):
			return "https://vimeo.com/" + parts[0], mediatypes.URLTypeVideo
		case parts[0] == "channels" && len(parts) >= 2:
			return "https://vimeo.com/channels/" + parts[1], mediatypes.URLTypeChannel
		case parts[0] == "showcase" && len(parts) >= 2:
			return "https://vimeo.com/showcase/" + parts[1], mediatypes.URLTypePlaylist
		}
	}
	return "", ""
}

// MediaID implements Service. Only single videos have media IDs.
func (v *Vimeo) MediaID(rawURL string) string {
	canon, urlType := v.CanonicalizeAndType(rawURL)
	if urlType != mediatypes.URLTypeVideo {
		return ""
	}
	return strings.TrimPrefix(canon, "https://vimeo.com/")
}

// Metadata implements Service.
func (v *Vimeo) Metadata(ctx context.Context, rawURL string) (*mediatypes.Metadata, error) {
	canon, urlType := v.CanonicalizeAndType(rawURL)
	if canon == "" {
		return nil, errors.Wrapf(ErrUnknownService, "not a Vimeo URL: %s", rawURL)
	}
	if !urlType.IsSingle() {
		return nil, errors.Errorf("expected a single video URL, got %s URL %s", urlType, canon)
	}
	info, err := v.runner.ExtractInfo(ctx, canon)
	if err != nil {
		return nil, err
	}
	return parseMetadata(ctx, info, ServiceNameVimeo)
}

// ThumbnailURL implements Service. Vimeo has no static thumbnail URL
// shape, so this fetches metadata and is empty on failure.
func (v *Vimeo) ThumbnailURL(ctx context.Context, rawURL string) string {
	meta, err := v.Metadata(ctx, rawURL)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("could not fetch Vimeo thumbnail, omitting")
		return ""
	}
	return meta.ThumbnailURL
}

// TimestampURL implements Service using Vimeo's #t= fragment.
func (v *Vimeo) TimestampURL(rawURL string, seconds float64) string {
	canon, urlType := v.CanonicalizeAndType(rawURL)
	if urlType != mediatypes.URLTypeVideo {
		return rawURL
	}
	return fmt.Sprintf("%s#t=%ds", canon, int(seconds))
}

// Download implements Service.
func (v *Vimeo) Download(ctx context.Context, rawURL, destDir string, opts ytdlp.DownloadOptions) (map[mediatypes.Type]string, error) {
	canon, _ := v.CanonicalizeAndType(rawURL)
	if canon == "" {
		return nil, errors.Wrapf(ErrUnknownService, "not a Vimeo URL: %s", rawURL)
	}
	return v.runner.Download(ctx, canon, destDir, opts)
}

// ListChannelItems implements Service for channel and showcase URLs.
func (v *Vimeo) ListChannelItems(ctx context.Context, rawURL string) ([]*mediatypes.Metadata, error) {
	canon, _ := v.CanonicalizeAndType(rawURL)
	if canon == "" {
		return nil, errors.Wrapf(ErrUnknownService, "not a Vimeo URL: %s", rawURL)
	}
	info, err := v.runner.ExtractInfo(ctx, canon)
	if err != nil {
		return nil, err
	}

	var items []*mediatypes.Metadata
	for _, entry := range entriesOf(info) {
		meta, err := parseMetadata(ctx, entry, ServiceNameVimeo)
		if err != nil {
			logger.G(ctx).WithError(err).Warn("skipping unparseable channel entry")
			continue
		}
		items = append(items, meta)
	}
	return items, nil
}
