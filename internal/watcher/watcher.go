// Package watcher reports instrument exports dropped into a directory once
// they stop changing.
package watcher

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Handler receives the settled files of one tick, sorted by path.
type Handler func(ctx context.Context, paths []string)

// Watcher watches a single directory for new or rewritten files matching its
// patterns. A file is handed over once no event touched it for the settle
// delay, so instruments still writing an export are not read half way.
type Watcher struct {
	dir      string
	patterns []string
	settle   time.Duration
	tick     time.Duration
	handler  Handler
	logger   *zap.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle sets how long a file must stay untouched. Default 2s.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) { w.settle = d }
}

// WithTick sets how often pending files are checked. Default 250ms.
func WithTick(d time.Duration) Option {
	return func(w *Watcher) { w.tick = d }
}

// New creates a watcher on dir. An empty pattern list matches every file.
func New(dir string, patterns []string, handler Handler, logger *zap.Logger, opts ...Option) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		dir:      dir,
		patterns: patterns,
		settle:   2 * time.Second,
		tick:     250 * time.Millisecond,
		handler:  handler,
		logger:   logger,
		watcher:  fw,
		pending:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run blocks until ctx is cancelled, then closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	w.logger.Info("watching for exports", zap.String("dir", w.dir), zap.Strings("patterns", w.patterns))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", zap.Error(err))

		case now := <-ticker.C:
			if paths := w.settled(now); len(paths) > 0 {
				w.handler(ctx, paths)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !w.matches(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.pending[event.Name] = time.Now()
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// Moved away before it settled, e.g. archived by another run.
		delete(w.pending, event.Name)
	default:
		return
	}
	w.logger.Debug("export event", zap.String("file", event.Name), zap.Stringer("op", event.Op))
}

// settled removes and returns the files untouched for the settle delay.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var paths []string
	for path, seen := range w.pending {
		if now.Sub(seen) >= w.settle {
			paths = append(paths, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(paths)
	return paths
}

func (w *Watcher) matches(path string) bool {
	if len(w.patterns) == 0 {
		return true
	}
	name := filepath.Base(path)
	for _, pattern := range w.patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
