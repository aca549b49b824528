package index

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch re-runs the indexer whenever files under its library root change,
// until ctx is cancelled. Bursts of filesystem events (a copy of many
// books) collapse into one pass per debounce window.
func Watch(ctx context.Context, ix *Indexer, debounce time.Duration, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("index: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, ix.LibraryDir); err != nil {
		return err
	}

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	schedule := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, func() {
			select {
			case fire <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// New directories must be watched before their contents settle.
			if event.Op.Has(fsnotify.Create) {
				_ = addRecursive(watcher, event.Name)
			}
			schedule()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)

		case <-fire:
			stats, err := ix.Run(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Error("reindex failed", "error", err)
				continue
			}
			log.Info("library reindexed",
				"books", stats.BooksSeen, "purged", stats.BooksPurged, "recipes", stats.RecipesFound)
		}
	}
}

// addRecursive watches path and every directory below it. Non-directories
// and vanished paths are ignored.
func addRecursive(watcher *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := watcher.Add(p); err != nil {
				return nil
			}
		}
		return nil
	})
}
