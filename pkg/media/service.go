// Package media recognizes media URLs and talks to their hosting services.
// Each Service canonicalizes that service's URL shapes, derives stable
// media IDs, and parses yt-dlp info JSON into Metadata; downloads and
// metadata fetches delegate to the ytdlp runner.
package media

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/media/ytdlp"
	mediatypes "github.com/jlevy/kash-media/pkg/types/media"
)

// ErrAPIResult indicates a media service returned data missing required
// fields.
var ErrAPIResult = errors.New("unexpected media service result")

// ErrUnknownService indicates no registered service recognizes a URL.
var ErrUnknownService = errors.New("URL not recognized by any media service")

// Service is one media hosting service (YouTube, Vimeo, Apple Podcasts).
type Service interface {
	// Name returns the service identifier stored in metadata.
	Name() string

	// CanonicalizeAndType normalizes a URL into its canonical form and
	// classifies it. Returns ("", "") when the URL does not belong to
	// this service.
	CanonicalizeAndType(url string) (string, mediatypes.URLType)

	// MediaID returns the stable media identifier for a single-item URL,
	// or "" when the URL has none.
	MediaID(url string) string

	// Metadata fetches metadata for a single media URL.
	Metadata(ctx context.Context, url string) (*mediatypes.Metadata, error)

	// ThumbnailURL returns a thumbnail image URL, or "" when the service
	// has none available.
	ThumbnailURL(ctx context.Context, url string) string

	// TimestampURL returns a URL that starts playback at the given
	// offset. Services without timestamp links return the input URL.
	TimestampURL(url string, seconds float64) string

	// Download fetches media files for the URL into destDir.
	Download(ctx context.Context, url, destDir string, opts ytdlp.DownloadOptions) (map[mediatypes.Type]string, error)

	// ListChannelItems lists metadata for every item of a channel,
	// show, or playlist URL.
	ListChannelItems(ctx context.Context, url string) ([]*mediatypes.Metadata, error)
}

// Canonicalize returns just the canonical URL from a service.
func Canonicalize(s Service, url string) string {
	canon, _ := s.CanonicalizeAndType(url)
	return canon
}

// Registry holds the known services in match order.
type Registry struct {
	services []Service
	filter   *DomainFilter
}

// NewRegistry builds a registry over the given services.
func NewRegistry(services ...Service) *Registry {
	return &Registry{services: services}
}

// DefaultRegistry returns a registry of all built-in services sharing one
// yt-dlp runner.
func DefaultRegistry(runner *ytdlp.Runner) *Registry {
	if runner == nil {
		runner = ytdlp.NewRunner()
	}
	return NewRegistry(
		NewYouTube(runner),
		NewVimeo(runner),
		NewApplePodcasts(runner),
	)
}

// SetDomainFilter installs a download allowlist. A nil filter allows
// every host.
func (r *Registry) SetDomainFilter(filter *DomainFilter) {
	r.filter = filter
}

// CheckURLAllowed returns ErrDomainBlocked when a download allowlist is
// installed and the URL's host is not on it.
func (r *Registry) CheckURLAllowed(url string) error {
	if r.filter == nil {
		return nil
	}
	ok, err := r.filter.Allows(url)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(ErrDomainBlocked, "%s", url)
	}
	return nil
}

// ServiceFor returns the first service that recognizes the URL.
func (r *Registry) ServiceFor(url string) (Service, error) {
	for _, s := range r.services {
		if canon, _ := s.CanonicalizeAndType(url); canon != "" {
			return s, nil
		}
	}
	return nil, errors.Wrapf(ErrUnknownService, "%s", url)
}

// Canonicalize normalizes a URL through whichever service recognizes it.
// Unrecognized URLs come back unchanged with an empty type.
func (r *Registry) Canonicalize(url string) (string, mediatypes.URLType) {
	for _, s := range r.services {
		if canon, urlType := s.CanonicalizeAndType(url); canon != "" {
			return canon, urlType
		}
	}
	return url, ""
}

// MediaID returns the media ID for the URL, or "" when unrecognized.
func (r *Registry) MediaID(url string) string {
	for _, s := range r.services {
		if id := s.MediaID(url); id != "" {
			return id
		}
	}
	return ""
}

// IsMediaURL reports whether any service recognizes the URL.
func (r *Registry) IsMediaURL(url string) bool {
	_, err := r.ServiceFor(url)
	return err == nil
}

// Services returns the registered services in order.
func (r *Registry) Services() []Service {
	return r.services
}
