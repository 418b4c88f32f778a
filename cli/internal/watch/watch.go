// Package watch calls back when a database file changes on disk.
package watch

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/satishbabariya/tablemap/internal/debug"
)

// DefaultDebounce is the quiet period before a burst of writes fires the
// callback once.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a database file and its -wal and -journal siblings.
type Watcher struct {
	file     string
	callback func() error
	debounce time.Duration
	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	errs     chan error
}

// NewWatcher creates a new file watcher
func NewWatcher(file string, debounce time.Duration, callback func() error) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	absPath, err := filepath.Abs(file)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	// Watch the directory: SQLite replaces and truncates its side files.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return &Watcher{
		file:     absPath,
		callback: callback,
		debounce: debounce,
		watcher:  watcher,
		done:     make(chan struct{}),
		errs:     make(chan error, 1),
	}, nil
}

// Errors delivers callback failures. The channel keeps only the latest
// undelivered error.
func (w *Watcher) Errors() <-chan error { return w.errs }

func (w *Watcher) matches(name string) bool {
	p, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	return p == w.file || strings.HasPrefix(p, w.file+"-")
}

func (w *Watcher) report(err error) {
	select {
	case <-w.errs:
	default:
	}
	w.errs <- err
}

// Start runs the callback once, then again after every change.
func (w *Watcher) Start() error {
	if err := w.callback(); err != nil {
		return fmt.Errorf("initial callback failed: %w", err)
	}

	go func() {
		debounceTimer := time.NewTimer(w.debounce)
		debounceTimer.Stop()
		var debounceCh <-chan time.Time

		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 || !w.matches(event.Name) {
					continue
				}
				debug.Debug("database file changed", "file", event.Name, "op", event.Op.String())
				debounceTimer.Reset(w.debounce)
				debounceCh = debounceTimer.C

			case <-debounceCh:
				debounceCh = nil
				if err := w.callback(); err != nil {
					debug.Warn("watch callback failed", "file", w.file, "error", err)
					w.report(err)
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				debug.Warn("watch error", "file", w.file, "error", err)
				w.report(err)

			case <-w.done:
				debounceTimer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop stops watching the file
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
