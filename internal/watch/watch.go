// Package watch re-runs a callback when interface or markdown files under a
// target change.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"stubtester/internal/logging"
	"stubtester/internal/types"
)

// DefaultDebounce is how long a path must stay quiet before it is reported.
const DefaultDebounce = 300 * time.Millisecond

// Filter decides which paths are artifacts. *discovery.Discoverer
// satisfies it.
type Filter interface {
	Kind(name string) (types.ArtifactKind, bool)
	Excluded(name string, dir bool) bool
}

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Batches       int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// Watcher watches a directory tree, or a single file, for artifact changes.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	filter      Filter
	root        string
	single      string // set when watching one file
	debounceMap map[string]time.Time
	debounceDur time.Duration
	tick        time.Duration
	stats       Stats
}

// New creates a watcher for path, which may be a directory or one file.
// Watches are in place when New returns; Run must be called to release
// them.
func New(path string, filter Filter, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:     fw,
		filter:      filter,
		root:        abs,
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		tick:        debounce / 4,
	}
	if !info.IsDir() {
		w.single = abs
		w.root = filepath.Dir(abs)
		err = fw.Add(w.root)
	} else {
		err = w.addTree(w.root)
	}
	if err != nil {
		fw.Close()
		return nil, err
	}
	logging.Watch("watching %s (%d dir(s))", w.root, len(fw.WatchList()))
	return w, nil
}

// Run watches until ctx is done, calling onChange with the sorted set of
// settled paths after each quiet period. onChange runs on the watcher
// goroutine, so events arriving meanwhile are batched into the next call.
// The underlying watcher is closed when Run returns.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string)) {
	defer func() {
		if err := w.Close(); err != nil {
			logging.WatchWarn("error closing watcher: %v", err)
		}
	}()

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("watch stopped: %v", ctx.Err())
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WatchWarn("watch error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			if paths := w.settled(); len(paths) > 0 {
				w.mu.Lock()
				w.stats.Batches++
				w.mu.Unlock()
				onChange(ctx, paths)
			}
		}
	}
}

// Close releases the watches. It is safe to call after Run has returned.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// addTree watches dir and every non-excluded directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			logging.WatchDebug("skipping %s: %v", p, err)
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if p != dir && w.filter.Excluded(entry.Name(), true) {
			return fs.SkipDir
		}
		return w.watcher.Add(p)
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// New directories are not covered by the existing watches.
	if w.single == "" && event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.filter.Excluded(filepath.Base(event.Name), true) {
				if err := w.addTree(event.Name); err != nil {
					logging.WatchWarn("failed to watch %s: %v", event.Name, err)
				}
			}
			return
		}
	}

	if !w.relevant(event.Name) {
		return
	}
	logging.WatchDebug("%s %s", event.Op, event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Events++
	w.stats.LastEventPath = event.Name
	w.stats.LastEventTime = time.Now()
	w.debounceMap[event.Name] = time.Now()
}

func (w *Watcher) relevant(path string) bool {
	if w.single != "" {
		return path == w.single
	}
	if w.filter.Excluded(filepath.Base(path), false) {
		return false
	}
	_, ok := w.filter.Kind(path)
	return ok
}

// settled drains the paths that have been quiet for the debounce window.
// Nothing is returned while any path is still changing.
func (w *Watcher) settled() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.debounceMap) == 0 {
		return nil
	}
	now := time.Now()
	for _, at := range w.debounceMap {
		if now.Sub(at) < w.debounceDur {
			return nil
		}
	}
	paths := make([]string, 0, len(w.debounceMap))
	for p := range w.debounceMap {
		paths = append(paths, p)
	}
	clear(w.debounceMap)
	sort.Strings(paths)
	return paths
}

// GetStats returns the current watcher statistics.
func (w *Watcher) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
