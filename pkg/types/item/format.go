package item

import (
	"path/filepath"
	"strings"
)

// Type classifies what an item is in the workspace.
type Type string

const (
	// TypeResource is an external resource, usually a URL.
	TypeResource Type = "resource"
	// TypeDoc is a text document, usually derived from a resource.
	TypeDoc Type = "doc"
	// TypeConfig is a configuration item.
	TypeConfig Type = "config"
	// TypeExport is a rendered export such as a PDF or docx.
	TypeExport Type = "export"
	// TypeAsset is a binary asset such as an image or audio file.
	TypeAsset Type = "asset"
)

// Folder returns the workspace folder items of this type live in.
func (t Type) Folder() string {
	switch t {
	case TypeResource:
		return "resources"
	case TypeDoc:
		return "docs"
	case TypeConfig:
		return "configs"
	case TypeExport:
		return "exports"
	case TypeAsset:
		return "assets"
	default:
		return "items"
	}
}

// Format identifies the data format of an item body or file.
type Format string

const (
	FormatURL       Format = "url"
	FormatPlaintext Format = "plaintext"
	FormatMarkdown  Format = "markdown"
	// FormatMdHTML is Markdown that may carry inline HTML spans, the
	// format transcripts with timestamps and speaker labels use.
	FormatMdHTML Format = "md_html"
	FormatHTML   Format = "html"
	FormatYAML   Format = "yaml"
	FormatJSON   Format = "json"
	FormatPDF    Format = "pdf"
	FormatDocx   Format = "docx"
	FormatMP3    Format = "mp3"
	FormatMP4    Format = "mp4"
	FormatJPEG   Format = "jpeg"
	FormatPNG    Format = "png"
)

// FileExt returns the file extension (with dot) for the format.
func (f Format) FileExt() string {
	switch f {
	case FormatURL:
		return ".resource.yml"
	case FormatPlaintext:
		return ".txt"
	case FormatMarkdown:
		return ".md"
	case FormatMdHTML:
		return ".md"
	case FormatHTML:
		return ".html"
	case FormatYAML:
		return ".yml"
	case FormatJSON:
		return ".json"
	case FormatPDF:
		return ".pdf"
	case FormatDocx:
		return ".docx"
	case FormatMP3:
		return ".mp3"
	case FormatMP4:
		return ".mp4"
	case FormatJPEG:
		return ".jpg"
	case FormatPNG:
		return ".png"
	default:
		return ".txt"
	}
}

// IsText reports whether the format is text that can live in an item body.
func (f Format) IsText() bool {
	switch f {
	case FormatPlaintext, FormatMarkdown, FormatMdHTML, FormatHTML, FormatYAML, FormatJSON, FormatURL:
		return true
	default:
		return false
	}
}

// IsBinary reports whether the format must live in an external file.
func (f Format) IsBinary() bool { return !f.IsText() }

// IsAudio reports whether the format is an audio container.
func (f Format) IsAudio() bool { return f == FormatMP3 }

// IsVideo reports whether the format is a video container.
func (f Format) IsVideo() bool { return f == FormatMP4 }

// IsImage reports whether the format is an image.
func (f Format) IsImage() bool { return f == FormatJPEG || f == FormatPNG }

// FormatFromPath guesses a format from a file path's extension.
func FormatFromPath(path string) Format {
	if strings.HasSuffix(path, ".resource.yml") {
		return FormatURL
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return FormatPlaintext
	case ".md", ".markdown":
		return FormatMarkdown
	case ".html", ".htm":
		return FormatHTML
	case ".yml", ".yaml":
		return FormatYAML
	case ".json":
		return FormatJSON
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDocx
	case ".mp3":
		return FormatMP3
	case ".mp4":
		return FormatMP4
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".png":
		return FormatPNG
	default:
		return FormatPlaintext
	}
}
