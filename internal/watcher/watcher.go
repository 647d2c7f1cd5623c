// Package watcher reloads the scene fixture when it changes on disk and
// reports the reload as a world change.
package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"playermap/internal/codec"
	"playermap/internal/domain"
)

// DefaultDebounce collapses bursts of editor writes into one reload
const DefaultDebounce = 500 * time.Millisecond

// Target is the host graph a scene is loaded into
type Target interface {
	Replace(nodes []domain.GraphNode) error
	RegisterMaterial(names ...string)
}

// Load decodes the scene at path and replaces target's contents with it
func Load(path string, target Target) (*codec.Scene, error) {
	s, err := codec.LoadFile(path)
	if err != nil {
		return nil, err
	}
	target.RegisterMaterial(s.Materials...)
	if err := target.Replace(s.Nodes); err != nil {
		return nil, fmt.Errorf("load scene %s: %w", s.Name, err)
	}
	return s, nil
}

// Watcher watches a scene file for changes
type Watcher struct {
	path          string
	target        Target
	onWorldChange func(reason string)
	debounce      time.Duration
	logger        *log.Logger
}

// New creates a scene watcher. onWorldChange is called after every
// successful reload.
func New(path string, target Target, onWorldChange func(reason string), logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		path:          path,
		target:        target,
		onWorldChange: onWorldChange,
		debounce:      DefaultDebounce,
		logger:        logger,
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// Reload loads the scene file and reports the world change. On error the
// previous scene stays in place.
func (w *Watcher) Reload() error {
	s, err := Load(w.path, w.target)
	if err != nil {
		return err
	}
	w.logger.Printf("watcher: loaded scene %q (%d nodes)", s.Name, len(s.Nodes))
	if w.onWorldChange != nil {
		w.onWorldChange("scene file changed: " + filepath.Base(w.path))
	}
	return nil
}

// Watch starts watching the scene file for changes.
// It blocks until the context is cancelled or an error occurs.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory containing the file
	// This handles cases where the file is replaced (e.g., by editors)
	dir := filepath.Dir(w.path)
	filename := filepath.Base(w.path)

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.logger.Printf("watcher: watching %s for changes", w.path)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			// Debounce rapid changes
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.Reload(); err != nil {
				w.logger.Printf("watcher: reload failed, keeping previous scene: %v", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Printf("watcher: error: %v", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
