// Package filesync watches a local payload file for changes and
// republishes its latest content, debounced, through a caller-supplied
// publish callback — typically a lease guard's Update.
//
// Grounded on the config-file watcher idiom: an fsnotify.Watcher on both
// the file and its parent directory (to catch editors that replace a file
// via rename-into-place), coalescing bursts of events with a single
// debounce timer.
package filesync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// PublishFunc is invoked with the watched file's latest content after a
// debounced burst of changes settles.
type PublishFunc func(ctx context.Context, content []byte) error

// Watcher watches Path for changes and calls a PublishFunc after each
// debounced burst.
type Watcher struct {
	Path     string
	Debounce time.Duration
	Logger   zerolog.Logger
}

// Run watches until ctx is cancelled or an unrecoverable watcher error
// occurs. Errors from publish are logged, not fatal — a transient publish
// failure (e.g. a lost lease) should not stop watching for the next
// change.
func (w *Watcher) Run(ctx context.Context, publish PublishFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.Path); err != nil {
		return fmt.Errorf("watch %s: %w", w.Path, err)
	}
	dir := filepath.Dir(w.Path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch directory %s: %w", dir, err)
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = time.Second
	}

	var timer *time.Timer
	fire := func() {
		content, err := os.ReadFile(w.Path)
		if err != nil {
			w.Logger.Warn().Err(err).Str("path", w.Path).Msg("payload file unreadable after change")
			return
		}
		if err := publish(ctx, content); err != nil {
			w.Logger.Warn().Err(err).Msg("publish failed")
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != w.Path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, fire)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.Warn().Err(err).Msg("watch error")
		}
	}
}
