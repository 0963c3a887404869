package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FileEvent reports a file created or modified inside the workspace.
type FileEvent struct {
	// Name is the path relative to the workspace root.
	Name string
	// Op is "created" or "modified".
	Op string
}

// Watch observes the workspace directory and invokes onEvent for every file
// created or written until ctx is cancelled. The workspace root is re-added
// after a reset recreates it, so a watcher survives project resets.
func (m *Manager) Watch(ctx context.Context, onEvent func(FileEvent)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting workspace watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(m.root); err != nil {
		return fmt.Errorf("watching %s: %w", m.root, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			switch {
			case ev.Op.Has(fsnotify.Create):
				// New subdirectories are watched too, so nested
				// artifacts still produce events.
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					w.Add(ev.Name)
					continue
				}
				m.emit(ev.Name, "created", onEvent)
			case ev.Op.Has(fsnotify.Write):
				m.emit(ev.Name, "modified", onEvent)
			case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
				if ev.Name == m.root {
					// Reset archived the directory; re-watch the
					// recreated root.
					os.MkdirAll(m.root, 0o755)
					w.Add(m.root)
				}
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("workspace watcher: %w", err)
		}
	}
}

func (m *Manager) emit(path, op string, onEvent func(FileEvent)) {
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		return
	}
	onEvent(FileEvent{Name: rel, Op: op})
}
