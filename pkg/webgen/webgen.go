// Package webgen renders workspace items and video galleries to static
// HTML pages from embedded templates.
package webgen

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jlevy/kash-media/pkg/types/item"
)

//go:embed templates/*
var templateFS embed.FS

const (
	basePageTemplate = "templates/base_page.html.tmpl"
	galleryTemplate  = "templates/youtube_gallery.html.tmpl"
	itemPageTemplate = "templates/item_page.html.tmpl"
)

// VideoInfo describes one video of a gallery.
type VideoInfo struct {
	YouTubeID   string   `yaml:"youtube_id" json:"youtube_id"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Topics      []string `yaml:"topics,omitempty" json:"topics,omitempty"`
}

// GalleryConfig is the YAML document a gallery config item carries in its
// body.
type GalleryConfig struct {
	Title  string      `yaml:"title" json:"title"`
	Videos []VideoInfo `yaml:"videos" json:"videos"`
}

// ParseGalleryConfig reads a gallery config from an item body.
func ParseGalleryConfig(body string) (*GalleryConfig, error) {
	var config GalleryConfig
	if err := yaml.Unmarshal([]byte(body), &config); err != nil {
		return nil, errors.Wrap(err, "failed to parse gallery config")
	}
	if len(config.Videos) == 0 {
		return nil, errors.New("gallery config lists no videos")
	}
	return &config, nil
}

// Marshal renders a gallery config as the YAML body of a config item.
func (c *GalleryConfig) Marshal() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal gallery config")
	}
	return string(out), nil
}

// RenderGallery renders the full gallery page for a config.
func RenderGallery(config *GalleryConfig) (string, error) {
	content, err := render(galleryTemplate, config)
	if err != nil {
		return "", err
	}
	return renderBase(config.Title, content)
}

// RenderItemPage renders an item as a standalone page, converting
// Markdown bodies to HTML.
func RenderItemPage(it *item.Item) (string, error) {
	body, err := it.BodyAsHTML()
	if err != nil {
		return "", err
	}
	content, err := render(itemPageTemplate, map[string]any{
		"Title":       it.Title,
		"Description": it.Description,
		"URL":         it.URL,
		"Body":        template.HTML(body),
	})
	if err != nil {
		return "", err
	}
	return renderBase(it.AbbrevTitle(), content)
}

func renderBase(title, content string) (string, error) {
	return render(basePageTemplate, map[string]any{
		"Title":   title,
		"Content": template.HTML(content),
	})
}

func render(name string, data any) (string, error) {
	tmplContent, err := templateFS.ReadFile(name)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read template %s", name)
	}
	tmpl, err := template.New(name).Parse(string(tmplContent))
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse template %s", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "failed to render template %s", name)
	}
	return buf.String(), nil
}
