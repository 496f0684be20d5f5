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

// ServiceNameYouTube identifies YouTube in metadata.
const ServiceNameYouTube = "youtube"

var (
	youtubeVideoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)
	youtubePathIDRe  = regexp.MustCompile(`^/(?:shorts|embed|live)/([A-Za-z0-9_-]{6,})`)
)

// YouTube recognizes youtube.com and youtu.be URLs.
type YouTube struct {
	runner *ytdlp.Runner
}

// NewYouTube returns the YouTube service backed by the given runner.
func NewYouTube(runner *ytdlp.Runner) *YouTube {
	return &YouTube{runner: runner}
}

// Name implements Service.
func (y *YouTube) Name() string { return ServiceNameYouTube }

// CanonicalizeAndType implements Service. Watch, shorts, embed, live, and
// youtu.be URLs canonicalize to the watch URL; playlist and channel URLs
// normalize to the www host.
func (y *YouTube) CanonicalizeAndType(rawURL string) (string, mediatypes.URLType) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ""
	}

	host := strings.ToLower(u.Hostname())
	switch host {
	case "youtu.be":
		id := strings.Trim(u.Path, "/")
		if youtubeVideoIDRe.MatchString(id) {
			return watchURL(id), mediatypes.URLTypeVideo
		}
		return "", ""
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com":
	default:
		return "", ""
	}

	switch {
	case u.Path == "/watch":
		id := u.Query().Get("v")
		if youtubeVideoIDRe.MatchString(id) {
			return watchURL(id), mediatypes.URLTypeVideo
		}
		return "", ""
	case u.Path == "/playlist":
		list := u.Query().Get("list")
		if list == "" {
			return "", ""
		}
		return "https://www.youtube.com/playlist?list=" + url.QueryEscape(list), mediatypes.URLTypePlaylist
	case strings.HasPrefix(u.Path, "/@"):
		handle := strings.Trim(u.Path, "/")
		handle = strings.SplitN(handle, "/", 2)[0]
		return "https://www.youtube.com/" + handle, mediatypes.URLTypeChannel
	case strings.HasPrefix(u.Path, "/channel/"), strings.HasPrefix(u.Path, "/c/"), strings.HasPrefix(u.Path, "/user/"):
		parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 3)
		if len(parts) < 2 || parts[1] == "" {
			return "", ""
		}
		return fmt.Sprintf("https://www.youtube.com/%s/%s", parts[0], parts[1]), mediatypes.URLTypeChannel
	}

	if m := youtubePathIDRe.FindStringSubmatch(u.Path); m != nil {
		return watchURL(m[1]), mediatypes.URLTypeVideo
	}
	return "", ""
}

func watchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// MediaID implements Service. Only single videos have media IDs.
func (y *YouTube) MediaID(rawURL string) string {
	canon, urlType := y.CanonicalizeAndType(rawURL)
	if urlType != mediatypes.URLTypeVideo {
		return ""
	}
	u, err := url.Parse(canon)
	if err != nil {
		return ""
	}
	return u.Query().Get("v")
}

// Metadata implements Service.
func (y *YouTube) Metadata(ctx context.Context, rawURL string) (*mediatypes.Metadata, error) {
	canon, urlType := y.CanonicalizeAndType(rawURL)
	if canon == "" {
		return nil, errors.Wrapf(ErrUnknownService, "not a YouTube URL: %s", rawURL)
	}
	if !urlType.IsSingle() {
		return nil, errors.Errorf("expected a single video URL, got %s URL %s", urlType, canon)
	}
	info, err := y.runner.ExtractInfo(ctx, canon)
	if err != nil {
		return nil, err
	}
	return parseMetadata(ctx, info, ServiceNameYouTube)
}

// ThumbnailURL implements Service using YouTube's static thumbnail URLs.
func (y *YouTube) ThumbnailURL(_ context.Context, rawURL string) string {
	id := y.MediaID(rawURL)
	if id == "" {
		return ""
	}
	return fmt.Sprintf("https://img.youtube.com/vi/%s/sddefault.jpg", id)
}

// TimestampURL implements Service, linking into the video at a second
// offset.
func (y *YouTube) TimestampURL(rawURL string, seconds float64) string {
	canon, urlType := y.CanonicalizeAndType(rawURL)
	if urlType != mediatypes.URLTypeVideo {
		return rawURL
	}
	return fmt.Sprintf("%s&t=%ds", canon, int(seconds))
}

// Download implements Service.
func (y *YouTube) Download(ctx context.Context, rawURL, destDir string, opts ytdlp.DownloadOptions) (map[mediatypes.Type]string, error) {
	canon, _ := y.CanonicalizeAndType(rawURL)
	if canon == "" {
		return nil, errors.Wrapf(ErrUnknownService, "not a YouTube URL: %s", rawURL)
	}
	return y.runner.Download(ctx, canon, destDir, opts)
}

// ListChannelItems implements Service for channel and playlist URLs.
// Entries that cannot be parsed are skipped and logged.
func (y *YouTube) ListChannelItems(ctx context.Context, rawURL string) ([]*mediatypes.Metadata, error) {
	canon, _ := y.CanonicalizeAndType(rawURL)
	if canon == "" {
		return nil, errors.Wrapf(ErrUnknownService, "not a YouTube URL: %s", rawURL)
	}
	info, err := y.runner.ExtractInfo(ctx, canon)
	if err != nil {
		return nil, err
	}

	entries := entriesOf(info)
	if entries == nil {
		logger.G(ctx).WithField("url", canon).Warn("no videos found for channel")
		return nil, nil
	}

	items := make([]*mediatypes.Metadata, 0, len(entries))
	for _, entry := range entries {
		meta, err := parseMetadata(ctx, entry, ServiceNameYouTube)
		if err != nil {
			logger.G(ctx).WithError(err).Warn("skipping unparseable channel entry")
			continue
		}
		items = append(items, meta)
	}
	logger.G(ctx).WithField("url", canon).WithField("count", len(items)).Info("listed channel items")
	return items, nil
}
