package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the global configuration whenever the config file is written
// or replaced, then calls onChange with the new configuration. Errors from
// the watcher and from parsing are passed to onError; the previous
// configuration stays in effect when a reload fails. Watch blocks until ctx
// is cancelled.
//
// The directory is watched rather than the file so editors and config
// management tools that replace the file atomically are picked up.
func Watch(ctx context.Context, onChange func(*MarathonConfig), onError func(error)) error {
	path := Get().ConfigFilePath()
	if path == "" {
		return fmt.Errorf("no config file path")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := Reload(); err != nil {
				if onError != nil {
					onError(fmt.Errorf("reload %s: %w", path, err))
				}
				continue
			}
			if onChange != nil {
				onChange(Get())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
