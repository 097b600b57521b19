package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 250 * time.Millisecond

// Watcher reloads the config file on change and hands the result to an
// apply callback. Editors replace files rather than rewriting them, so
// the parent directory is watched and events are debounced.
type Watcher struct {
	logger *slog.Logger
	path   string
	apply  func(Loaded)

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher prepares a watcher for path. apply runs on the watcher
// goroutine after every successful reload.
func NewWatcher(logger *slog.Logger, path string, apply func(Loaded)) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{logger: logger, path: path, apply: apply}
}

// Start begins watching. Calling Start on a running watcher is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch config dir %q: %w", filepath.Dir(w.path), err)
	}

	w.fsw = fsw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.loop(fsw, w.stopCh, w.doneCh)
	return nil
}

// Stop halts the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	stopCh, doneCh, fsw := w.stopCh, w.doneCh, w.fsw
	w.running = false
	w.mu.Unlock()

	close(stopCh)
	_ = fsw.Close()
	<-doneCh
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-stopCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(watchDebounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-timerCh:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	loaded, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload failed; keeping previous configuration", "path", w.path, "error", err)
		return
	}
	for _, warning := range loaded.Warnings {
		w.logger.Warn("config warning", "message", warning.Message)
	}
	w.logger.Info("config reloaded", "path", w.path)
	if w.apply != nil {
		w.apply(loaded)
	}
}
