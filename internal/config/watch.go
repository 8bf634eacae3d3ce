package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "designcal/internal/log"
)

// reloadDelay coalesces the burst of events produced by one save.
const reloadDelay = 200 * time.Millisecond

// Watch reloads the config at path whenever it is written or replaced and
// passes the result to onChange, until ctx is done. Files that fail to load
// are logged and skipped.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	// Save replaces the file by rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	go watchLoop(ctx, watcher, path, onChange)
	return nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, onChange func(*Config)) {
	defer watcher.Close()

	target := filepath.Base(path)
	debounce := time.NewTimer(reloadDelay)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			debounce.Reset(reloadDelay)

		case <-debounce.C:
			cfg, err := Load(path)
			if err != nil {
				appLog.Error("config reload failed", err, "path", path)
				continue
			}
			appLog.Info("config reloaded", "path", path, "feeds", len(cfg.Feeds))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			appLog.Warn("config watcher error", "error", err.Error())
		}
	}
}
