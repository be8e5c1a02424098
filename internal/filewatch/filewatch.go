// Package filewatch watches a single file and reports when a write to it has
// completed.
//
// fsnotify does not expose a close-after-write event on every platform, so
// completion is approximated by a quiet period: every raw Write, Create or
// Chmod event restarts a timer, and the file is reported stable only once the
// timer expires without further activity.
package filewatch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultQuietPeriod is how long a file must be left alone before it is
// considered completely written.
const DefaultQuietPeriod = 500 * time.Millisecond

var (
	// ErrFileUnavailable is logged when the watched path does not exist.
	ErrFileUnavailable = errors.New("file unavailable")

	// ErrAlreadyWatching is returned by Watch while another handle is live.
	ErrAlreadyWatching = errors.New("a watch is already active; cancel it first")
)

// Handle identifies one watch. An unarmed handle never delivers events.
type Handle interface {
	Path() string
	Armed() bool
}

// Watcher hands out at most one live Handle at a time.
type Watcher struct {
	quiet  time.Duration
	logger *slog.Logger

	mu     sync.Mutex
	active *handle
}

// NewWatcher creates a watcher. A non-positive quiet period selects
// DefaultQuietPeriod.
func NewWatcher(quiet time.Duration, logger *slog.Logger) *Watcher {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{quiet: quiet, logger: logger}
}

type handle struct {
	owner    *Watcher
	path     string
	fsw      *fsnotify.Watcher
	onStable func(string)

	done    chan struct{}
	stopped chan struct{}

	mu       sync.Mutex
	timer    *time.Timer
	seq      uint64
	canceled bool
}

func (h *handle) Path() string { return h.path }

func (h *handle) Armed() bool { return h.fsw != nil }

// Watch starts watching path. onStable is called from a background goroutine
// each time a write to path completes.
//
// If path does not exist the returned handle is unarmed and a warning is
// logged; it still has to be cancelled before the next Watch.
func (w *Watcher) Watch(path string, onStable func(path string)) (Handle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active != nil {
		return nil, ErrAlreadyWatching
	}

	h := &handle{owner: w, path: path, onStable: onStable}
	w.active = h

	info, err := os.Stat(path)
	if err != nil {
		w.logger.Warn("wallpaper file not watchable, watch unarmed",
			"path", path, "error", fmt.Errorf("%w: %w", ErrFileUnavailable, err))
		return h, nil
	}
	if info.IsDir() {
		w.logger.Warn("wallpaper path is a directory, watch unarmed",
			"path", path, "error", ErrFileUnavailable)
		return h, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.active = nil
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory containing the file; editors and image tools often
	// replace the file by renaming a temporary over it.
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		w.active = nil
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	h.fsw = fsw
	h.done = make(chan struct{})
	h.stopped = make(chan struct{})
	go w.loop(h)

	w.logger.Debug("watching wallpaper file", "path", path)
	return h, nil
}

// Cancel releases h. When it returns no further events are delivered for h.
// Cancelling an already cancelled or foreign handle is a no-op.
func (w *Watcher) Cancel(hd Handle) {
	h, ok := hd.(*handle)
	if !ok || h == nil || h.owner != w {
		return
	}

	w.mu.Lock()
	if w.active == h {
		w.active = nil
	}
	w.mu.Unlock()

	h.mu.Lock()
	if h.canceled {
		h.mu.Unlock()
		return
	}
	h.canceled = true
	if h.timer != nil {
		h.timer.Stop()
	}
	h.mu.Unlock()

	if h.fsw == nil {
		return
	}
	close(h.done)
	if err := h.fsw.Close(); err != nil {
		w.logger.Debug("error closing file watcher", "path", h.path, "error", err)
	}
	<-h.stopped
	w.logger.Debug("stopped watching wallpaper file", "path", h.path)
}

// Close cancels the live handle, if any.
func (w *Watcher) Close() {
	w.mu.Lock()
	h := w.active
	w.mu.Unlock()
	if h != nil {
		w.Cancel(h)
	}
}

// loop filters directory events down to the watched file.
func (w *Watcher) loop(h *handle) {
	defer close(h.stopped)
	name := filepath.Base(h.path)

	for {
		select {
		case event, ok := <-h.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}

			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.logger.Debug("wallpaper file moved away", "path", h.path, "op", event.Op.String())
				h.stopTimer()
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Chmod):
				h.touch(w.quiet)
			}

		case err, ok := <-h.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "path", h.path, "error", err)

		case <-h.done:
			return
		}
	}
}

// touch (re)starts the quiet-period timer.
func (h *handle) touch(quiet time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.canceled {
		return
	}
	if h.timer != nil {
		h.timer.Stop()
	}
	h.seq++
	seq := h.seq
	h.timer = time.AfterFunc(quiet, func() { h.fire(seq) })
}

func (h *handle) stopTimer() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.seq++
}

// fire delivers unless the timer was superseded or the handle cancelled.
func (h *handle) fire(seq uint64) {
	h.mu.Lock()
	current := !h.canceled && seq == h.seq
	if current {
		h.timer = nil
	}
	h.mu.Unlock()

	// onStable may block on the monitor queue, so it runs without the lock.
	// A delivery racing Cancel is rejected by the receiver's generation check.
	if current && h.onStable != nil {
		h.onStable(h.path)
	}
}
