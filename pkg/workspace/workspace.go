// Package workspace implements the on-disk item store. A workspace is a
// directory carrying a .kash marker; items live as files with YAML
// frontmatter in type-named subdirectories (resources/, docs/, exports/,
// configs/, assets/).
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/types/item"
)

// MarkerDir is the directory that marks a workspace root.
const MarkerDir = ".kash"

// ErrNotFound indicates no enclosing workspace exists.
var ErrNotFound = errors.New("no workspace found")

// Workspace is an open item store rooted at a marked directory.
type Workspace struct {
	root string
}

// Init creates a workspace at dir, creating the directory and marker as
// needed. Initializing an existing workspace is a no-op.
func Init(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", dir)
	}
	if err := os.MkdirAll(filepath.Join(abs, MarkerDir), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create workspace marker")
	}
	return &Workspace{root: abs}, nil
}

// Open finds the workspace enclosing dir by walking up to the nearest
// .kash marker.
func Open(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", dir)
	}
	for cur := abs; ; {
		if isWorkspaceRoot(cur) {
			return &Workspace{root: cur}, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, errors.Wrapf(ErrNotFound, "no %s marker above %s", MarkerDir, abs)
		}
		cur = parent
	}
}

func isWorkspaceRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, MarkerDir))
	return err == nil && info.IsDir()
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// Name returns the workspace's directory name.
func (w *Workspace) Name() string {
	return filepath.Base(w.root)
}

// AbsPath resolves a store path to an absolute path, rejecting paths that
// escape the workspace.
func (w *Workspace) AbsPath(storePath string) (string, error) {
	p := storePath
	if !filepath.IsAbs(p) {
		p = filepath.Join(w.root, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(w.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("path %s is outside the workspace %s", storePath, w.root)
	}
	return p, nil
}

// RelPath converts an absolute path inside the workspace to a store path.
func (w *Workspace) RelPath(absPath string) (string, error) {
	rel, err := filepath.Rel(w.root, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", errors.Errorf("path %s is outside the workspace %s", absPath, w.root)
	}
	return filepath.ToSlash(rel), nil
}

// AssetsDir returns (and creates) the asset directory for an item, used
// for frame captures and other derived files.
func (w *Workspace) AssetsDir(it *item.Item) (string, error) {
	name := it.SlugName()
	if name == "" {
		name = it.ID
	}
	dir := filepath.Join(w.root, item.TypeAsset.Folder(), name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create assets directory")
	}
	return dir, nil
}
