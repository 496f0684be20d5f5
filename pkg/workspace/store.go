package workspace

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	yamlv2 "gopkg.in/yaml.v2"
	"gopkg.in/yaml.v3"

	"github.com/jlevy/kash-media/pkg/types/item"
)

const frontmatterDelim = "---"

// HTML items carry frontmatter inside an HTML comment so exported pages
// stay renderable in a browser.
const (
	htmlFrontmatterOpen  = "<!---"
	htmlFrontmatterClose = "--->"
)

func frontmatterDelims(format item.Format) (openDelim, closeDelim string) {
	if format == item.FormatHTML {
		return htmlFrontmatterOpen, htmlFrontmatterClose
	}
	return frontmatterDelim, frontmatterDelim
}

// frontmatter is the YAML header serialized ahead of item bodies. URL
// resource files (.resource.yml) are this document alone.
type frontmatter struct {
	ID          string         `yaml:"id,omitempty"`
	Type        item.Type      `yaml:"type,omitempty"`
	Title       string         `yaml:"title,omitempty"`
	Description string         `yaml:"description,omitempty"`
	Format      item.Format    `yaml:"format,omitempty"`
	URL         string         `yaml:"url,omitempty"`
	DerivedFrom []string       `yaml:"derived_from,omitempty"`
	CreatedAt   time.Time      `yaml:"created_at,omitempty"`
	Metadata    map[string]any `yaml:"metadata,omitempty"`
}

func frontmatterOf(it *item.Item) frontmatter {
	return frontmatter{
		ID:          it.ID,
		Type:        it.Type,
		Title:       it.Title,
		Description: it.Description,
		Format:      it.Format,
		URL:         it.URL,
		DerivedFrom: it.DerivedFrom,
		CreatedAt:   it.CreatedAt,
		Metadata:    it.Metadata,
	}
}

func (fm frontmatter) apply(it *item.Item) {
	it.ID = fm.ID
	if fm.Type != "" {
		it.Type = fm.Type
	}
	it.Title = fm.Title
	it.Description = fm.Description
	if fm.Format != "" {
		it.Format = fm.Format
	}
	it.URL = fm.URL
	it.DerivedFrom = fm.DerivedFrom
	it.CreatedAt = fm.CreatedAt
	it.Metadata = fm.Metadata
}

// itemFileName is the slugified filename (with format extension) an item
// stores under. Untitled items fall back to their ID.
func itemFileName(it *item.Item) string {
	name := it.SlugName()
	if name == "" {
		name = it.ID
	}
	return name + it.Format.FileExt()
}

// Save writes the item into the workspace and returns its store path.
// Items that already have a store path are written back in place; new
// items get a slugified filename, with -2, -3 suffixes on collision.
// Binary items are copied from their external path.
func (w *Workspace) Save(it *item.Item) (string, error) {
	if it.Format.IsBinary() {
		return w.saveBinary(it)
	}

	content, err := renderItem(it)
	if err != nil {
		return "", err
	}

	var abs string
	if it.StorePath != "" {
		abs, err = w.AbsPath(it.StorePath)
	} else {
		abs, err = w.uniquePath(it, content)
	}
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create item directory")
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write item %s", abs)
	}

	storePath, err := w.RelPath(abs)
	if err != nil {
		return "", err
	}
	it.StorePath = storePath
	return storePath, nil
}

func (w *Workspace) saveBinary(it *item.Item) (string, error) {
	if it.ExternalPath == "" {
		return "", errors.Errorf("binary item %q has no external file to store", it.AbbrevTitle())
	}
	src, err := os.Open(it.ExternalPath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s", it.ExternalPath)
	}
	defer src.Close()

	abs := filepath.Join(w.root, it.Type.Folder(), itemFileName(it))
	if it.StorePath != "" {
		abs, err = w.AbsPath(it.StorePath)
		if err != nil {
			return "", err
		}
	} else {
		abs = nextFreePath(abs)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create item directory")
	}
	dst, err := os.Create(abs)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %s", abs)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", errors.Wrapf(err, "failed to copy %s", it.ExternalPath)
	}

	storePath, err := w.RelPath(abs)
	if err != nil {
		return "", err
	}
	it.StorePath = storePath
	it.ExternalPath = abs
	return storePath, nil
}

// uniquePath picks a free path for a new item. A collision with a file
// holding identical content reuses that path.
func (w *Workspace) uniquePath(it *item.Item, content []byte) (string, error) {
	base := filepath.Join(w.root, it.Type.Folder(), itemFileName(it))
	ext := it.Format.FileExt()
	stem := strings.TrimSuffix(base, ext)

	for i := 1; ; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		existing, err := os.ReadFile(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", errors.Wrapf(err, "failed to check %s", candidate)
		}
		if bytes.Equal(existing, content) {
			return candidate, nil
		}
	}
}

func nextFreePath(base string) string {
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return base
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func renderItem(it *item.Item) ([]byte, error) {
	fmBytes, err := yaml.Marshal(frontmatterOf(it))
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal item frontmatter")
	}
	if it.Format == item.FormatURL {
		return fmBytes, nil
	}

	openDelim, closeDelim := frontmatterDelims(it.Format)
	var buf bytes.Buffer
	buf.WriteString(openDelim + "\n")
	buf.Write(fmBytes)
	buf.WriteString(closeDelim + "\n\n")
	buf.WriteString(it.Body)
	if it.Body != "" && !strings.HasSuffix(it.Body, "\n") {
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// Load reads the item at storePath. Files without frontmatter load as
// body-only items typed by their folder and extension.
func (w *Workspace) Load(storePath string) (*item.Item, error) {
	abs, err := w.AbsPath(storePath)
	if err != nil {
		return nil, err
	}
	rel, err := w.RelPath(abs)
	if err != nil {
		return nil, err
	}

	format := item.FormatFromPath(abs)
	it := &item.Item{
		Type:      typeFromStorePath(rel, format),
		Format:    format,
		StorePath: rel,
	}

	if format.IsBinary() {
		if _, err := os.Stat(abs); err != nil {
			return nil, errors.Wrapf(err, "failed to load item %s", storePath)
		}
		it.ExternalPath = abs
		return it, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load item %s", storePath)
	}

	if format == item.FormatURL {
		var fm frontmatter
		if err := yaml.Unmarshal(data, &fm); err != nil {
			return nil, errors.Wrapf(err, "failed to parse resource file %s", storePath)
		}
		fm.apply(it)
		it.StorePath = rel
		return it, nil
	}

	fm, body, hasFM, err := parseFrontmatter(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse item %s", storePath)
	}
	if hasFM {
		fm.apply(it)
	}
	it.Body = body
	it.StorePath = rel
	if it.Format == "" {
		it.Format = format
	}
	return it, nil
}

// parseFrontmatter splits a text item file into frontmatter and body.
// Markdown files go through goldmark's meta extension; other text formats
// use a plain delimiter scan (HTML comment delimiters for .html files).
func parseFrontmatter(data []byte, format item.Format) (frontmatter, string, bool, error) {
	var fm frontmatter

	if format == item.FormatMarkdown || format == item.FormatMdHTML {
		md := goldmark.New(goldmark.WithExtensions(meta.Meta))
		pctx := parser.NewContext()
		var sink bytes.Buffer
		if err := md.Convert(data, &sink, parser.WithContext(pctx)); err != nil {
			return fm, "", false, errors.Wrap(err, "failed to parse markdown")
		}
		metaData := meta.Get(pctx)
		if metaData == nil {
			return fm, string(data), false, nil
		}
		// goldmark-meta hands back yaml.v2 value types; round-trip through
		// yaml.v2 before decoding into the struct.
		metaBytes, err := yamlv2.Marshal(metaData)
		if err != nil {
			return fm, "", false, errors.Wrap(err, "failed to normalize frontmatter")
		}
		if err := yaml.Unmarshal(metaBytes, &fm); err != nil {
			return fm, "", false, errors.Wrap(err, "failed to decode frontmatter")
		}
		return fm, bodyAfterFrontmatter(string(data)), true, nil
	}

	openDelim, closeDelim := frontmatterDelims(format)
	text := string(data)
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != openDelim {
		return fm, text, false, nil
	}
	endLine := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == closeDelim {
			endLine = i
			break
		}
	}
	if endLine < 0 {
		return fm, text, false, nil
	}
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:endLine], "\n")), &fm); err != nil {
		return fm, "", false, errors.Wrap(err, "failed to decode frontmatter")
	}
	body := strings.TrimLeft(strings.Join(lines[endLine+1:], "\n"), "\n")
	return fm, body, true, nil
}

// bodyAfterFrontmatter strips the leading frontmatter block.
func bodyAfterFrontmatter(content string) string {
	if !strings.HasPrefix(content, frontmatterDelim) {
		return content
	}
	lines := strings.Split(content, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelim {
			return strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\n")
		}
	}
	return content
}

func typeFromStorePath(rel string, format item.Format) item.Type {
	folder := rel
	if idx := strings.Index(rel, "/"); idx >= 0 {
		folder = rel[:idx]
	}
	for _, t := range []item.Type{item.TypeResource, item.TypeDoc, item.TypeConfig, item.TypeExport, item.TypeAsset} {
		if folder == t.Folder() {
			return t
		}
	}
	if format.IsBinary() {
		return item.TypeAsset
	}
	return item.TypeDoc
}

// List returns store paths matching a doublestar pattern, sorted. An
// empty pattern lists every item.
func (w *Workspace) List(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "**/*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.Errorf("invalid pattern %q", pattern)
	}

	var paths []string
	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != w.root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := w.RelPath(path)
		if err != nil {
			return err
		}
		if ok, _ := doublestar.Match(pattern, rel); ok {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list workspace items")
	}
	sort.Strings(paths)
	return paths, nil
}

// FindByURL returns the resource item holding the given URL, if one is
// already stored.
func (w *Workspace) FindByURL(url string) (*item.Item, bool) {
	paths, err := w.List(item.TypeResource.Folder() + "/**")
	if err != nil {
		return nil, false
	}
	for _, p := range paths {
		if it, err := w.Load(p); err == nil && it.URL == url {
			return it, true
		}
	}
	return nil, false
}

// Resolve turns a command-line target into an item: a URL becomes a
// saved resource item (reusing an existing one with the same URL),
// anything else loads as a store path.
func (w *Workspace) Resolve(target string) (*item.Item, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		if existing, ok := w.FindByURL(target); ok {
			return existing, nil
		}
		it := item.FromURL(target)
		if _, err := w.Save(it); err != nil {
			return nil, err
		}
		return it, nil
	}
	return w.Load(target)
}
