package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/brandlens/brandlens-go/internal/records"
	"github.com/brandlens/brandlens-go/internal/storage"
)

// rebuildDebounce is how long the watcher waits after the last file
// event before re-running the pipeline. Exports tend to land as bursts
// of writes; a debounce collapses each burst into one run.
const rebuildDebounce = 2 * time.Second

// RebuildCallback is invoked after each watch-triggered pipeline run.
type RebuildCallback func(result *PipelineResult, err error)

// WatchRecords monitors a records directory and re-runs the full
// analysis pipeline whenever exports change. There is no incremental
// mode: every trigger rebuilds the graph from all records, so the
// stored snapshot always reflects the directory's current contents.
// Blocks until the context is cancelled.
func WatchRecords(
	ctx context.Context,
	brandName string,
	recordsDir string,
	store storage.SnapshotStore,
	onRebuild RebuildCallback,
) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the records directory and its subdirectories.
	err = filepath.Walk(recordsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if shouldSkipWatchDir(info.Name()) {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	debounce := time.NewTimer(rebuildDebounce)
	debounce.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isRecordEvent(event) {
				continue
			}

			// New subdirectories need their own watch.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !shouldSkipWatchDir(info.Name()) {
						_ = watcher.Add(event.Name)
					}
					continue
				}
			}

			pending = true
			debounce.Reset(rebuildDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false

			recs, err := records.LoadDir(recordsDir)
			if err != nil {
				if onRebuild != nil {
					onRebuild(nil, fmt.Errorf("loading records: %w", err))
				}
				continue
			}

			_, _, result, err := RunPipeline(ctx, brandName, recs, store, nil)
			if onRebuild != nil {
				onRebuild(result, err)
			}
		}
	}
}

// isRecordEvent reports whether a filesystem event can affect the
// record set.
func isRecordEvent(event fsnotify.Event) bool {
	if event.Op.Has(fsnotify.Chmod) {
		return false
	}
	if event.Op.Has(fsnotify.Create) {
		// Could be a new directory; the caller checks.
		return true
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return ext == ".json" || filepath.Base(event.Name) == records.IgnoreFile
}

// shouldSkipWatchDir reports whether a directory is never watched.
func shouldSkipWatchDir(name string) bool {
	switch name {
	case ".git", ".brandlens", "node_modules":
		return true
	}
	return false
}
