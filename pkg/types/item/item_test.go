package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivedCopy(t *testing.T) {
	src := New(TypeResource,
		WithTitle("Some Talk"),
		WithURL("https://example.com/talk"),
		WithFormat(FormatURL),
	)
	src.StorePath = "resources/some-talk.resource.yml"
	src.SetMetadata("media_service", "youtube")

	derived := src.DerivedCopy(TypeDoc, WithFormat(FormatMarkdown), WithBody("# Transcript"))

	assert.NotEqual(t, src.ID, derived.ID)
	assert.Equal(t, TypeDoc, derived.Type)
	assert.Equal(t, "Some Talk", derived.Title)
	assert.Equal(t, FormatMarkdown, derived.Format)
	assert.Equal(t, "# Transcript", derived.Body)
	assert.Equal(t, []string{"resources/some-talk.resource.yml"}, derived.DerivedFrom)
	assert.Equal(t, "youtube", derived.MetadataString("media_service"))

	// The source must not be touched.
	assert.Equal(t, TypeResource, src.Type)
	assert.Empty(t, src.Body)
	assert.Empty(t, src.DerivedFrom)
}

func TestDerivedCopyMetadataIsolation(t *testing.T) {
	src := New(TypeResource, WithURL("https://example.com"))
	src.SetMetadata("key", "original")

	derived := src.DerivedCopy(TypeDoc)
	derived.SetMetadata("key", "changed")

	assert.Equal(t, "original", src.MetadataString("key"))
	assert.Equal(t, "changed", derived.MetadataString("key"))
}

func TestDerivedCopyWithoutStorePath(t *testing.T) {
	src := New(TypeResource, WithURL("https://example.com"))
	derived := src.DerivedCopy(TypeDoc)
	assert.Equal(t, []string{src.ID}, derived.DerivedFrom)
}

func TestAbbrevTitle(t *testing.T) {
	tests := []struct {
		name     string
		item     *Item
		expected string
	}{
		{
			name:     "short title unchanged",
			item:     &Item{Title: "A Short Title"},
			expected: "A Short Title",
		},
		{
			name:     "falls back to URL",
			item:     &Item{URL: "https://example.com/x"},
			expected: "https://example.com/x",
		},
		{
			name:     "untitled placeholder",
			item:     &Item{},
			expected: "Untitled",
		},
		{
			name:     "whitespace collapsed",
			item:     &Item{Title: "Too   many\n spaces"},
			expected: "Too many spaces",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.item.AbbrevTitle())
		})
	}
}

func TestAbbrevTitleTruncates(t *testing.T) {
	long := &Item{Title: "This title keeps going and going and going and going and going and going on"}
	got := long.AbbrevTitle()
	assert.LessOrEqual(t, len(got), AbbrevTitleLen+len("…"))
	assert.Contains(t, got, "…")
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello, World!", "hello-world"},
		{"  Spaces  Everywhere  ", "spaces-everywhere"},
		{"Already-Slugged", "already-slugged"},
		{"über ähnlich", "ber-hnlich"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Slugify(tt.input))
	}
}

func TestBodyAsHTML(t *testing.T) {
	t.Run("markdown", func(t *testing.T) {
		it := &Item{Format: FormatMarkdown, Body: "# Heading\n\nSome *text*."}
		html, err := it.BodyAsHTML()
		require.NoError(t, err)
		assert.Contains(t, html, "<h1")
		assert.Contains(t, html, "<em>text</em>")
	})

	t.Run("md_html preserves spans", func(t *testing.T) {
		it := &Item{
			Format: FormatMdHTML,
			Body:   `Hello <span data-timestamp="12.5">world</span>.`,
		}
		html, err := it.BodyAsHTML()
		require.NoError(t, err)
		assert.Contains(t, html, `<span data-timestamp="12.5">world</span>`)
	})

	t.Run("html passthrough", func(t *testing.T) {
		it := &Item{Format: FormatHTML, Body: "<p>as is</p>"}
		html, err := it.BodyAsHTML()
		require.NoError(t, err)
		assert.Equal(t, "<p>as is</p>", html)
	})

	t.Run("binary format rejected", func(t *testing.T) {
		it := &Item{Format: FormatPDF}
		_, err := it.BodyAsHTML()
		assert.Error(t, err)
	})
}

func TestFormatFileExt(t *testing.T) {
	assert.Equal(t, ".resource.yml", FormatURL.FileExt())
	assert.Equal(t, ".md", FormatMarkdown.FileExt())
	assert.Equal(t, ".md", FormatMdHTML.FileExt())
	assert.Equal(t, ".mp4", FormatMP4.FileExt())
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
	}{
		{"resources/talk.resource.yml", FormatURL},
		{"docs/transcript.md", FormatMarkdown},
		{"exports/report.pdf", FormatPDF},
		{"assets/clip.mp4", FormatMP4},
		{"assets/frame.jpg", FormatJPEG},
		{"notes", FormatPlaintext},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatFromPath(tt.path), tt.path)
	}
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, (&Item{}).IsEmpty())
	assert.True(t, (&Item{Body: "  \n"}).IsEmpty())
	assert.False(t, (&Item{Body: "content"}).IsEmpty())
	assert.False(t, (&Item{ExternalPath: "assets/a.mp3"}).IsEmpty())
}
