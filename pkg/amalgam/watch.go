// File: pkg/amalgam/watch.go
package amalgam

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long Watch waits for fragment edits to settle.
const DefaultDebounce = 300 * time.Millisecond

// Watch runs an amalgamation and then rebuilds it whenever a file in one of
// the visited fragment folders changes, until ctx is cancelled. Failed
// rebuilds are logged and do not stop the watcher.
func Watch(ctx context.Context, args Arguments, debounce time.Duration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	generated := make(map[string]bool)
	for _, file := range []string{args.Output, args.Tree} {
		if file == "" {
			continue
		}
		abs, err := filepath.Abs(file)
		if err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
		generated[abs] = true
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	rebuild := func() {
		report, err := Run(ctx, args, logger)
		folders := []string{args.DevFolder}
		if err != nil {
			logger.Error("Rebuild failed", zap.Error(err))
		} else {
			folders = append(folders, report.Folders()...)
		}
		for _, folder := range folders {
			abs, err := filepath.Abs(folder)
			if err != nil || watched[abs] {
				continue
			}
			if err := watcher.Add(abs); err != nil {
				logger.Warn("Failed to watch folder", zap.String("folder", abs), zap.Error(err))
				continue
			}
			watched[abs] = true
			logger.Debug("Watching folder", zap.String("folder", abs))
		}
	}

	rebuild()
	logger.Info("Watching fragments for changes", zap.Int("folders", len(watched)))

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isRelevant(event, generated) {
				continue
			}
			logger.Debug("Fragment change detected", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Watcher error", zap.Error(err))
		case <-timer.C:
			rebuild()
		}
	}
}

// isRelevant filters out chmod-only events and writes to the files Run generates.
func isRelevant(event fsnotify.Event, generated map[string]bool) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return true
	}
	return !generated[name]
}
