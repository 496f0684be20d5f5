// Package item defines the item model shared across the kash media kit.
// An item is the unit of content in a workspace: a resource (such as a
// media URL), a document derived from it, a config, or an export. Actions
// consume items and produce derived items, preserving provenance.
package item

import (
	"bytes"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const (
	// AbbrevTitleLen is the maximum length of an abbreviated title.
	AbbrevTitleLen = 64
	// AbbrevDescLen is the maximum length of an abbreviated description.
	AbbrevDescLen = 256
)

// Item is a single piece of content in a workspace.
type Item struct {
	ID          string         `json:"id" yaml:"id"`
	Type        Type           `json:"type" yaml:"type"`
	Title       string         `json:"title,omitempty" yaml:"title,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Format      Format         `json:"format,omitempty" yaml:"format,omitempty"`
	URL         string         `json:"url,omitempty" yaml:"url,omitempty"`
	Body        string         `json:"-" yaml:"-"`
	StorePath   string         `json:"store_path,omitempty" yaml:"-"`
	ExternalPath string        `json:"external_path,omitempty" yaml:"external_path,omitempty"`
	DerivedFrom []string       `json:"derived_from,omitempty" yaml:"derived_from,omitempty"`
	CreatedAt   time.Time      `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// New creates an item of the given type with a fresh ID.
func New(itemType Type, opts ...Option) *Item {
	it := &Item{
		ID:        uuid.NewString(),
		Type:      itemType,
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Option configures an item at construction time.
type Option func(*Item)

// WithTitle sets the item title.
func WithTitle(title string) Option {
	return func(it *Item) { it.Title = title }
}

// WithDescription sets the item description.
func WithDescription(description string) Option {
	return func(it *Item) { it.Description = description }
}

// WithFormat sets the item format.
func WithFormat(format Format) Option {
	return func(it *Item) { it.Format = format }
}

// WithURL sets the item URL.
func WithURL(url string) Option {
	return func(it *Item) { it.URL = url }
}

// WithBody sets the item body.
func WithBody(body string) Option {
	return func(it *Item) { it.Body = body }
}

// FromURL creates a resource item pointing at a URL.
func FromURL(url string) *Item {
	return New(TypeResource, WithURL(url), WithFormat(FormatURL))
}

// DerivedCopy returns a new item derived from this one. The copy gets a
// fresh ID, records provenance in DerivedFrom, and keeps the source's
// title, format, URL, body, and metadata unless an option overrides them.
// The source item is never mutated.
func (it *Item) DerivedCopy(itemType Type, opts ...Option) *Item {
	derived := &Item{
		ID:          uuid.NewString(),
		Type:        itemType,
		Title:       it.Title,
		Description: it.Description,
		Format:      it.Format,
		URL:         it.URL,
		Body:        it.Body,
		CreatedAt:   time.Now().UTC(),
	}
	if it.StorePath != "" {
		derived.DerivedFrom = []string{it.StorePath}
	} else if it.ID != "" {
		derived.DerivedFrom = []string{it.ID}
	}
	if len(it.Metadata) > 0 {
		derived.Metadata = make(map[string]any, len(it.Metadata))
		for k, v := range it.Metadata {
			derived.Metadata[k] = v
		}
	}
	for _, opt := range opts {
		opt(derived)
	}
	return derived
}

// IsEmpty reports whether the item has neither a body nor an external file.
func (it *Item) IsEmpty() bool {
	return strings.TrimSpace(it.Body) == "" && it.ExternalPath == ""
}

// AbbrevTitle returns the title truncated for display. Untitled items fall
// back to the URL, then to a placeholder.
func (it *Item) AbbrevTitle() string {
	title := it.Title
	if title == "" {
		title = it.URL
	}
	if title == "" {
		title = "Untitled"
	}
	return abbreviate(title, AbbrevTitleLen)
}

// AbbrevDescription returns the description truncated for display.
func (it *Item) AbbrevDescription() string {
	return abbreviate(it.Description, AbbrevDescLen)
}

// SlugName returns a filesystem-friendly slug derived from the title.
func (it *Item) SlugName() string {
	return Slugify(it.AbbrevTitle())
}

// BodyAsHTML renders the item body to HTML. Markdown bodies are rendered
// with goldmark (GFM enabled, raw HTML passed through so timestamp and
// speaker spans survive); HTML bodies are returned as is.
func (it *Item) BodyAsHTML() (string, error) {
	switch it.Format {
	case FormatHTML:
		return it.Body, nil
	case FormatMarkdown, FormatMdHTML, "":
		md := goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		)
		var buf bytes.Buffer
		if err := md.Convert([]byte(it.Body), &buf); err != nil {
			return "", errors.Wrap(err, "failed to render markdown body")
		}
		return buf.String(), nil
	default:
		return "", errors.Errorf("cannot render format %q as HTML", it.Format)
	}
}

// MetadataString returns a string metadata value, or "" when absent.
func (it *Item) MetadataString(key string) string {
	if it.Metadata == nil {
		return ""
	}
	if v, ok := it.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// SetMetadata sets a metadata key, allocating the map on first use.
func (it *Item) SetMetadata(key string, value any) {
	if it.Metadata == nil {
		it.Metadata = make(map[string]any)
	}
	it.Metadata[key] = value
}

func abbreviate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}

// Slugify lowercases a string and replaces non-alphanumeric runs with
// single hyphens, suitable for filenames.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
