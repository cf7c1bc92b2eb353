package savestore

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches removable-media and external-handheld-ROM directories
// for changes and signals that title enumeration should be redone. This is
// additive convenience over the SaveStore contract (SPEC_FULL.md §4.3
// supplemented feature) — it never changes synchronization semantics.
type Watcher struct {
	fs     *fsnotify.Watcher
	Events <-chan struct{}
}

// NewWatcher starts watching dirs for filesystem events and returns a
// Watcher whose Events channel receives one notification per batch of
// changes. Call Close when done.
func NewWatcher(dirs ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("savestore: create watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("savestore: watch %s: %w", dir, err)
		}
	}

	events := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case _, ok := <-fsw.Events:
				if !ok {
					close(events)
					return
				}
				select {
				case events <- struct{}{}:
				default:
					// A rescan is already pending; coalesce.
				}
			case _, ok := <-fsw.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return &Watcher{fs: fsw, Events: events}, nil
}

// Close stops watching and releases the underlying fsnotify handle.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
