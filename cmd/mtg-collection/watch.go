package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// watchAllocate prints a plan, then prints a new one each time the deck list
// changes, until ctx is cancelled. Plans are never committed in this mode.
func (a *app) watchAllocate(ctx context.Context, opts allocateOptions) error {
	deck, err := filepath.Abs(opts.file)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", opts.file, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors often replace the file, so the directory is watched.
	if err := watcher.Add(filepath.Dir(deck)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(deck), err)
	}

	run := func() {
		if err := a.allocate(ctx, nil, opts); err != nil && ctx.Err() == nil {
			fmt.Fprintln(a.errOut, "Error:", err)
		}
	}
	run()
	a.logger.Info("Watching deck list", "path", deck)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if touchesFile(event, deck) {
				debounce = time.After(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("File watcher error", "error", err)
		case <-debounce:
			debounce = nil
			fmt.Fprintf(a.out, "\n%s changed at %s\n", filepath.Base(deck), time.Now().Format("15:04:05"))
			run()
		}
	}
}

// touchesFile reports whether event wrote or replaced path.
func touchesFile(event fsnotify.Event, path string) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil || name != path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
