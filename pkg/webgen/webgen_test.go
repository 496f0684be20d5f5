package webgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlevy/kash-media/pkg/types/item"
)

func TestParseGalleryConfig(t *testing.T) {
	config, err := ParseGalleryConfig(`title: Conference Talks
videos:
  - youtube_id: abc123xyz00
    title: Opening Keynote
    description: The opening keynote.
    topics: [keynote, welcome]
  - youtube_id: def456uvw11
    title: Closing Panel
`)
	require.NoError(t, err)
	assert.Equal(t, "Conference Talks", config.Title)
	require.Len(t, config.Videos, 2)
	assert.Equal(t, "abc123xyz00", config.Videos[0].YouTubeID)
	assert.Equal(t, []string{"keynote", "welcome"}, config.Videos[0].Topics)
	assert.Equal(t, "Closing Panel", config.Videos[1].Title)
}

func TestParseGalleryConfigErrors(t *testing.T) {
	_, err := ParseGalleryConfig("videos: []\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no videos")

	_, err = ParseGalleryConfig("{not yaml")
	require.Error(t, err)
}

func TestGalleryConfigRoundTrip(t *testing.T) {
	config := &GalleryConfig{
		Title: "Talks",
		Videos: []VideoInfo{
			{YouTubeID: "abc123xyz00", Title: "One"},
		},
	}
	body, err := config.Marshal()
	require.NoError(t, err)

	parsed, err := ParseGalleryConfig(body)
	require.NoError(t, err)
	assert.Equal(t, config, parsed)
}

func TestRenderGallery(t *testing.T) {
	html, err := RenderGallery(&GalleryConfig{
		Title: "Conference Talks",
		Videos: []VideoInfo{
			{YouTubeID: "abc123xyz00", Title: "Opening Keynote", Description: "The opening keynote."},
			{YouTubeID: "def456uvw11", Title: "Closing Panel"},
		},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>Conference Talks</title>")
	assert.Contains(t, html, `data-video-id="abc123xyz00"`)
	assert.Contains(t, html, "https://img.youtube.com/vi/abc123xyz00/sddefault.jpg")
	assert.Contains(t, html, `<a href="https://www.youtube.com/watch?v=def456uvw11">Closing Panel</a>`)
	assert.Contains(t, html, "<p>The opening keynote.</p>")
	// The click-to-load embed script ships inline.
	assert.Contains(t, html, "youtube-nocookie.com/embed/")
}

func TestRenderGalleryEscapesTitles(t *testing.T) {
	html, err := RenderGallery(&GalleryConfig{
		Title: "Talks",
		Videos: []VideoInfo{
			{YouTubeID: "abc123xyz00", Title: `<script>alert("x")</script>`},
		},
	})
	require.NoError(t, err)
	assert.NotContains(t, html, `<script>alert`)
}

func TestRenderItemPage(t *testing.T) {
	it := item.New(item.TypeDoc,
		item.WithTitle("Field Notes"),
		item.WithFormat(item.FormatMarkdown),
		item.WithURL("https://example.com/talk"),
		item.WithBody("## Heading\n\nSome *notes*."),
	)
	it.Description = "Notes from the field."

	html, err := RenderItemPage(it)
	require.NoError(t, err)
	assert.Contains(t, html, "<title>Field Notes</title>")
	assert.Contains(t, html, "<p>Notes from the field.</p>")
	assert.Contains(t, html, `<a href="https://example.com/talk">`)
	// Markdown body rendered to HTML.
	assert.Contains(t, html, "<h2>Heading</h2>")
	assert.Contains(t, html, "<em>notes</em>")
}
