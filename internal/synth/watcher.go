package synth

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"compartmentalize/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher regenerates the layout artifacts whenever the description or one of
// the templates changes. Compilation is never triggered from a watch run.
// It watches the containing directories because editors often save by
// renaming over the original file.
//
// A Watcher is single-use: once stopped it cannot be started again.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	opts        Options
	targets     map[string]bool
	debounceMap map[string]time.Time
	debounceDur time.Duration
	onRun       func(*Result, error)
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stopped     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	Events        int
	Runs          int
	Failures      int
	LastEventTime time.Time
	LastEventPath string
	LastError     string
}

// NewWatcher creates a watcher for the inputs named in opts.
func NewWatcher(opts Options) (*Watcher, error) {
	opts.Producer = nil

	targets := make(map[string]bool, 3)
	for _, p := range []string{opts.DescriptionPath, opts.LinkerTemplatePath, opts.BuildTemplatePath} {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		targets[abs] = true
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:     watcher,
		opts:        opts,
		targets:     targets,
		debounceMap: make(map[string]time.Time),
		debounceDur: 300 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// SetDebounce changes how long a file must be quiet before a run.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounceDur = d
}

// SetCallback registers a function called after every triggered run.
func (w *Watcher) SetCallback(fn func(*Result, error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onRun = fn
}

// ErrWatcherStopped is returned by Start after Stop.
var ErrWatcherStopped = errors.New("watcher already stopped")

// Start begins watching. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return ErrWatcherStopped
	}
	if w.running {
		w.mu.Unlock()
		return nil
	}

	dirs := make(map[string]bool)
	for target := range w.targets {
		dirs[filepath.Dir(target)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.mu.Unlock()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logging.Watch("watching directory: %s", dir)
	}
	w.running = true
	w.mu.Unlock()

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	logging.Watch("stopped")
}

// Done is closed once the event loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

// GetStats returns the current watcher statistics.
func (w *Watcher) GetStats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// TriggerRun runs the pipeline immediately.
func (w *Watcher) TriggerRun(ctx context.Context) (*Result, error) {
	result, err := Run(ctx, w.opts)

	w.mu.Lock()
	w.stats.Runs++
	if err != nil {
		w.stats.Failures++
		w.stats.LastError = err.Error()
	} else {
		w.stats.LastError = ""
	}
	onRun := w.onRun
	w.mu.Unlock()

	if err != nil {
		logging.WatchWarn("regeneration failed: %v", err)
	}
	if onRun != nil {
		onRun(result, err)
	}
	return result, err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	debounceTicker := time.NewTicker(50 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("context cancelled")
			return

		case <-w.stopCh:
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
			logging.Get(logging.CategoryWatch).Error("watcher error: %v", err)

		case <-debounceTicker.C:
			w.processDebouncedEvents(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	path, err := filepath.Abs(event.Name)
	if err != nil || !w.targets[path] {
		return
	}

	logging.Get(logging.CategoryWatch).Debug("%s event for %s", event.Op, path)

	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = path
	w.debounceMap[path] = time.Now()
	w.mu.Unlock()
}

// processDebouncedEvents triggers one run once every pending file has settled.
func (w *Watcher) processDebouncedEvents(ctx context.Context) {
	w.mu.Lock()
	if len(w.debounceMap) == 0 {
		w.mu.Unlock()
		return
	}
	now := time.Now()
	for _, eventTime := range w.debounceMap {
		if now.Sub(eventTime) < w.debounceDur {
			w.mu.Unlock()
			return
		}
	}
	changed := make([]string, 0, len(w.debounceMap))
	for path := range w.debounceMap {
		changed = append(changed, filepath.Base(path))
		delete(w.debounceMap, path)
	}
	w.mu.Unlock()

	logging.Watch("regenerating after change to %v", changed)
	_, _ = w.TriggerRun(ctx)
}
