package media

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlevy/kash-media/pkg/media/ytdlp"
	mediatypes "github.com/jlevy/kash-media/pkg/types/media"
)

func TestApplePodcastsCanonicalize(t *testing.T) {
	apple := NewApplePodcasts(nil)

	tests := []struct {
		name         string
		url          string
		expectedURL  string
		expectedType mediatypes.URLType
	}{
		{
			name:         "episode URL with show slug",
			url:          "https://podcasts.apple.com/us/podcast/redefining-success-money-and-belonging-paul-millerd/id1627920305?i=1000635337486",
			expectedURL:  "https://podcasts.apple.com/podcast/id1627920305?i=1000635337486",
			expectedType: mediatypes.URLTypeEpisode,
		},
		{
			name:         "canonical episode URL unchanged",
			url:          "https://podcasts.apple.com/podcast/id1627920305?i=1000635337486",
			expectedURL:  "https://podcasts.apple.com/podcast/id1627920305?i=1000635337486",
			expectedType: mediatypes.URLTypeEpisode,
		},
		{
			name:         "show URL without episode",
			url:          "https://podcasts.apple.com/us/podcast/id1627920305",
			expectedURL:  "https://podcasts.apple.com/podcast/id1627920305",
			expectedType: mediatypes.URLTypePodcast,
		},
		{
			name:         "itunes host",
			url:          "https://itunes.apple.com/us/podcast/some-show/id1303792223?i=1000394194840",
			expectedURL:  "https://podcasts.apple.com/podcast/id1303792223?i=1000394194840",
			expectedType: mediatypes.URLTypeEpisode,
		},
		{
			name: "unrelated host",
			url:  "https://example.com/podcast/123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canon, urlType := apple.CanonicalizeAndType(tt.url)
			assert.Equal(t, tt.expectedURL, canon)
			assert.Equal(t, tt.expectedType, urlType)
		})
	}
}

func TestApplePodcastsMediaID(t *testing.T) {
	apple := NewApplePodcasts(nil)

	// Only episode URLs have media IDs.
	assert.Empty(t, apple.MediaID("https://podcasts.apple.com/us/podcast/id1627920305"))
	assert.Empty(t, apple.MediaID("https://podcasts.apple.com/podcast/id1234567890"))
	assert.Empty(t, apple.MediaID("https://example.com/podcast/123"))

	assert.Equal(t, "id1234567890?i=1000635337486",
		apple.MediaID("https://podcasts.apple.com/podcast/id1234567890?i=1000635337486"))
}

func TestApplePodcastsTimestampURL(t *testing.T) {
	apple := NewApplePodcasts(nil)
	url := "https://podcasts.apple.com/podcast/id1234567890?i=1000635337486"
	assert.Equal(t, url, apple.TimestampURL(url, 90))
}

func TestYouTubeCanonicalize(t *testing.T) {
	yt := NewYouTube(nil)

	tests := []struct {
		name         string
		url          string
		expectedURL  string
		expectedType mediatypes.URLType
	}{
		{
			name:         "watch URL",
			url:          "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expectedURL:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expectedType: mediatypes.URLTypeVideo,
		},
		{
			name:         "watch URL with extra params",
			url:          "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123&t=42s",
			expectedURL:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expectedType: mediatypes.URLTypeVideo,
		},
		{
			name:         "short link",
			url:          "https://youtu.be/dQw4w9WgXcQ",
			expectedURL:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expectedType: mediatypes.URLTypeVideo,
		},
		{
			name:         "shorts URL",
			url:          "https://www.youtube.com/shorts/dQw4w9WgXcQ",
			expectedURL:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expectedType: mediatypes.URLTypeVideo,
		},
		{
			name:         "embed URL",
			url:          "https://www.youtube.com/embed/dQw4w9WgXcQ",
			expectedURL:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expectedType: mediatypes.URLTypeVideo,
		},
		{
			name:         "mobile host",
			url:          "https://m.youtube.com/watch?v=dQw4w9WgXcQ",
			expectedURL:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expectedType: mediatypes.URLTypeVideo,
		},
		{
			name:         "playlist",
			url:          "https://www.youtube.com/playlist?list=PLabc123",
			expectedURL:  "https://www.youtube.com/playlist?list=PLabc123",
			expectedType: mediatypes.URLTypePlaylist,
		},
		{
			name:         "handle channel",
			url:          "https://www.youtube.com/@somecreator/videos",
			expectedURL:  "https://www.youtube.com/@somecreator",
			expectedType: mediatypes.URLTypeChannel,
		},
		{
			name:         "channel id",
			url:          "https://youtube.com/channel/UCabcdef123456",
			expectedURL:  "https://www.youtube.com/channel/UCabcdef123456",
			expectedType: mediatypes.URLTypeChannel,
		},
		{
			name: "watch without id",
			url:  "https://www.youtube.com/watch",
		},
		{
			name: "unrelated host",
			url:  "https://example.com/watch?v=dQw4w9WgXcQ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canon, urlType := yt.CanonicalizeAndType(tt.url)
			assert.Equal(t, tt.expectedURL, canon)
			assert.Equal(t, tt.expectedType, urlType)
		})
	}
}

func TestYouTubeMediaIDAndThumbnail(t *testing.T) {
	yt := NewYouTube(nil)

	assert.Equal(t, "dQw4w9WgXcQ", yt.MediaID("https://youtu.be/dQw4w9WgXcQ"))
	assert.Empty(t, yt.MediaID("https://www.youtube.com/@somecreator"))

	assert.Equal(t, "https://img.youtube.com/vi/dQw4w9WgXcQ/sddefault.jpg",
		yt.ThumbnailURL(context.Background(), "https://youtu.be/dQw4w9WgXcQ"))
	assert.Empty(t, yt.ThumbnailURL(context.Background(), "https://example.com/x"))
}

func TestYouTubeTimestampURL(t *testing.T) {
	yt := NewYouTube(nil)

	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=93s",
		yt.TimestampURL("https://youtu.be/dQw4w9WgXcQ", 93.7))

	// Non-video URLs come back unchanged.
	channel := "https://www.youtube.com/@somecreator"
	assert.Equal(t, channel, yt.TimestampURL(channel, 10))
}

func TestVimeoCanonicalize(t *testing.T) {
	vm := NewVimeo(nil)

	tests := []struct {
		name         string
		url          string
		expectedURL  string
		expectedType mediatypes.URLType
	}{
		{
			name:         "video page",
			url:          "https://vimeo.com/123456789",
			expectedURL:  "https://vimeo.com/123456789",
			expectedType: mediatypes.URLTypeVideo,
		},
		{
			name:         "player URL",
			url:          "https://player.vimeo.com/video/123456789",
			expectedURL:  "https://vimeo.com/123456789",
			expectedType: mediatypes.URLTypeVideo,
		},
		{
			name:         "channel",
			url:          "https://vimeo.com/channels/staffpicks",
			expectedURL:  "https://vimeo.com/channels/staffpicks",
			expectedType: mediatypes.URLTypeChannel,
		},
		{
			name:         "showcase",
			url:          "https://vimeo.com/showcase/789",
			expectedURL:  "https://vimeo.com/showcase/789",
			expectedType: mediatypes.URLTypePlaylist,
		},
		{
			name: "not vimeo",
			url:  "https://example.com/123456789",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canon, urlType := vm.CanonicalizeAndType(tt.url)
			assert.Equal(t, tt.expectedURL, canon)
			assert.Equal(t, tt.expectedType, urlType)
		})
	}
}

func TestVimeoTimestampURL(t *testing.T) {
	vm := NewVimeo(nil)
	assert.Equal(t, "https://vimeo.com/123456789#t=90s",
		vm.TimestampURL("https://player.vimeo.com/video/123456789", 90))
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry(ytdlp.NewRunner())

	canon, urlType := reg.Canonicalize("https://youtu.be/dQw4w9WgXcQ")
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", canon)
	assert.Equal(t, mediatypes.URLTypeVideo, urlType)

	canon, urlType = reg.Canonicalize("https://podcasts.apple.com/us/podcast/show/id123?i=456")
	assert.Equal(t, "https://podcasts.apple.com/podcast/id123?i=456", canon)
	assert.Equal(t, mediatypes.URLTypeEpisode, urlType)

	// Unrecognized URLs pass through unchanged.
	canon, urlType = reg.Canonicalize("https://example.com/page")
	assert.Equal(t, "https://example.com/page", canon)
	assert.Empty(t, urlType)

	assert.True(t, reg.IsMediaURL("https://vimeo.com/123"))
	assert.False(t, reg.IsMediaURL("https://example.com/page"))

	svc, err := reg.ServiceFor("https://vimeo.com/123")
	require.NoError(t, err)
	assert.Equal(t, ServiceNameVimeo, svc.Name())

	_, err = reg.ServiceFor("https://example.com/page")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownService))

	assert.Equal(t, "dQw4w9WgXcQ", reg.MediaID("https://youtu.be/dQw4w9WgXcQ"))
	assert.Empty(t, reg.MediaID("https://example.com/page"))
}

func TestParseMetadata(t *testing.T) {
	ctx := context.Background()

	info := map[string]any{
		"id":          "dQw4w9WgXcQ",
		"title":       "Some Talk",
		"webpage_url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"description": "A talk about things.",
		"thumbnail":   "https://i.ytimg.com/vi/dQw4w9WgXcQ/hq720.jpg",
		"channel_url": "https://www.youtube.com/@somecreator",
		"uploader":    "Some Creator",
		"upload_date": "20231201",
		"duration":    float64(212),
		"view_count":  float64(1000000),
		"heatmap": []any{
			map[string]any{"start_time": 0.0, "end_time": 2.12, "value": 1.0},
			map[string]any{"start_time": 2.12, "end_time": 4.24, "value": 0.5},
		},
	}

	meta, err := parseMetadata(ctx, info, ServiceNameYouTube)
	require.NoError(t, err)

	assert.Equal(t, "dQw4w9WgXcQ", meta.MediaID)
	assert.Equal(t, ServiceNameYouTube, meta.MediaService)
	assert.Equal(t, "Some Talk", meta.Title)
	assert.Equal(t, "2023-12-01", meta.UploadDate)
	assert.Equal(t, 212*time.Second, meta.Duration)
	assert.Equal(t, int64(1000000), meta.ViewCount)
	require.Len(t, meta.Heatmap, 2)
	assert.Equal(t, 1.0, meta.Heatmap[0].Value)
}

func TestParseMetadataMissingKeys(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		info map[string]any
	}{
		{"missing id", map[string]any{"title": "x", "webpage_url": "https://a"}},
		{"missing title", map[string]any{"id": "x", "webpage_url": "https://a"}},
		{"missing url", map[string]any{"id": "x", "title": "y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseMetadata(ctx, tt.info, ServiceNameYouTube)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrAPIResult))
		})
	}
}

func TestParseMetadataFallbackURL(t *testing.T) {
	info := map[string]any{
		"id":    "abc123xyz",
		"title": "Entry",
		"url":   "https://www.youtube.com/watch?v=abc123xyz",
	}
	meta, err := parseMetadata(context.Background(), info, ServiceNameYouTube)
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123xyz", meta.URL)
	assert.Nil(t, meta.Heatmap)
}
