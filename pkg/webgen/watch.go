package webgen

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/types/item"
)

// watchDebounce is how long file events must settle before a gallery
// regenerates. Editors fire several events per save.
const watchDebounce = 500 * time.Millisecond

// fileEvent represents one file change.
type fileEvent struct {
	Path string
	Op   fsnotify.Op
	Time time.Time
}

// watchGalleries watches the workspace and regenerates gallery exports
// when their configs change. It blocks until the context is cancelled.
func (s *Server) watchGalleries(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	root := s.ws.Root()
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		return errors.Wrap(err, "failed to watch workspace")
	}

	events := make(chan fileEvent)
	debounced := make(chan fileEvent)
	go debounceFileEvents(ctx, events, debounced, watchDebounce)

	go func() {
		defer close(events)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				select {
				case events <- fileEvent{Path: event.Name, Op: event.Op, Time: time.Now()}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.G(ctx).WithError(err).Warn("File watcher error")
			case <-ctx.Done():
				return
			}
		}
	}()

	logger.G(ctx).WithField("root", root).Info("Watching workspace for gallery changes")

	for {
		select {
		case event := <-debounced:
			s.handleFileChange(ctx, event.Path)
		case <-ctx.Done():
			return nil
		}
	}
}

// debounceFileEvents coalesces rapid changes to the same path, emitting
// each path only after it has been quiet for the full delay.
func debounceFileEvents(ctx context.Context, input <-chan fileEvent, output chan<- fileEvent, delay time.Duration) {
	pending := make(map[string]*time.Timer)

	stopAll := func() {
		for _, timer := range pending {
			timer.Stop()
		}
	}

	for {
		select {
		case event, ok := <-input:
			if !ok {
				stopAll()
				return
			}
			if timer, exists := pending[event.Path]; exists {
				timer.Stop()
				delete(pending, event.Path)
			}
			eventCopy := event
			pending[event.Path] = time.AfterFunc(delay, func() {
				select {
				case output <- eventCopy:
				case <-ctx.Done():
				}
			})
		case <-ctx.Done():
			stopAll()
			return
		}
	}
}

// handleFileChange reacts to one settled change. Only gallery config
// changes trigger work; everything else in the workspace is served live
// so there is nothing to regenerate.
func (s *Server) handleFileChange(ctx context.Context, path string) {
	rel, err := s.ws.RelPath(path)
	if err != nil {
		return
	}
	if !strings.HasPrefix(rel, item.TypeConfig.Folder()+"/") {
		return
	}
	if err := s.RegenerateGallery(ctx, rel); err != nil {
		logger.G(ctx).WithError(err).WithField("config", rel).Warn("Failed to regenerate gallery")
	}
}

// RegenerateGallery re-renders the export page for one gallery config,
// overwriting the export file in place so repeated edits do not pile up
// suffixed copies. Configs that do not parse as galleries are skipped.
func (s *Server) RegenerateGallery(ctx context.Context, storePath string) error {
	it, err := s.ws.Load(storePath)
	if err != nil {
		return err
	}
	config, err := ParseGalleryConfig(it.Body)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("config", storePath).Debug("Config is not a gallery, skipping")
		return nil
	}

	page, err := RenderGallery(config)
	if err != nil {
		return err
	}

	name := it.SlugName()
	if name == "" {
		name = it.ID
	}
	rel := filepath.Join(item.TypeExport.Folder(), name+item.FormatHTML.FileExt())
	abs, err := s.ws.AbsPath(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return errors.Wrap(err, "failed to create exports directory")
	}
	if err := os.WriteFile(abs, []byte(page), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", rel)
	}

	logger.G(ctx).WithFields(logrus.Fields{
		"config": storePath,
		"export": rel,
	}).Info("Regenerated gallery export")
	return nil
}
