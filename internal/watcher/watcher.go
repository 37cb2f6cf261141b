// Package watcher drives watch-mode rebuilds: it watches every file the
// last build read and schedules a debounced rebuild when any changes.
package watcher

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/fastpack/internal/bundler"
	"github.com/standardbeagle/fastpack/internal/debug"
)

// defaultDebounce batches editor save bursts into one rebuild.
const defaultDebounce = 100 * time.Millisecond

// Watcher owns the fsnotify watcher and the rebuild loop.
type Watcher struct {
	bundler  *bundler.Bundler
	fs       *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	watched map[string]bool

	// OnRebuild, when set, observes each rebuild's result.
	OnRebuild func(result *bundler.BundleResult, err error)
}

// New creates a watcher over the given bundler.
func New(b *bundler.Bundler) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		bundler:  b,
		fs:       fs,
		debounce: defaultDebounce,
		watched:  map[string]bool{},
	}, nil
}

// Run performs an initial build, then rebuilds on changes until the
// context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	result, err := w.bundler.Write(ctx)
	w.report(result, err)
	if result != nil {
		w.watch(result.WatchFiles)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				debug.LogWatch("change: %s\n", event.Name)
				w.scheduleRebuild(ctx)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}

// scheduleRebuild resets the debounce timer.
func (w *Watcher) scheduleRebuild(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		result, err := w.bundler.Write(ctx)
		w.report(result, err)
		if result != nil {
			w.watch(result.WatchFiles)
		}
	})
}

// watch adds any files not already watched.
func (w *Watcher) watch(files []string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, file := range files {
		if w.watched[file] {
			continue
		}
		if err := w.fs.Add(file); err != nil {
			debug.LogWatch("cannot watch %s: %v\n", file, err)
			continue
		}
		w.watched[file] = true
	}
}

func (w *Watcher) report(result *bundler.BundleResult, err error) {
	if w.OnRebuild != nil {
		w.OnRebuild(result, err)
		return
	}
	if err != nil {
		log.Printf("build failed: %v", err)
		return
	}
	for _, warning := range result.Warnings {
		log.Printf("warning: %v", warning)
	}
	log.Printf("built %d chunk(s)", len(result.Chunks))
}
