// Package monitor keeps the wallpaper file watch in step with the desktop
// settings and regenerates the theme whenever the wallpaper changes.
//
// Settings notifications and file notifications are both turned into events
// on one queue. A single goroutine consumes the queue, so regeneration never
// overlaps with itself and the watched path is only ever touched from that
// goroutine.
package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/jmylchreest/wallhue/internal/filewatch"
	"github.com/jmylchreest/wallhue/internal/settings"
)

// State is the monitor's watch state.
type State int

const (
	// Idle means no wallpaper path is tracked.
	Idle State = iota
	// Watching means a wallpaper path is tracked. The file watch may be
	// unarmed if the file did not exist when it was requested.
	Watching
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Watching:
		return "watching"
	default:
		return "unknown"
	}
}

// Follow selects which wallpaper keys are honoured.
type Follow string

const (
	// FollowBoth honours changes to either wallpaper key.
	FollowBoth Follow = "both"
	// FollowActive honours only the key matching the current light/dark mode.
	FollowActive Follow = "active"
)

// ParseFollow validates a follow mode. Empty selects FollowBoth.
func ParseFollow(s string) (Follow, error) {
	switch Follow(s) {
	case "", FollowBoth:
		return FollowBoth, nil
	case FollowActive:
		return FollowActive, nil
	default:
		return "", fmt.Errorf("invalid follow mode %q (want %q or %q)", s, FollowBoth, FollowActive)
	}
}

// SettingsSource delivers wallpaper setting changes.
type SettingsSource interface {
	Subscribe(ctx context.Context, keys []string, onChange func(key, value string)) (io.Closer, error)
}

// SubscribeFunc adapts a function to SettingsSource.
type SubscribeFunc func(ctx context.Context, keys []string, onChange func(key, value string)) (io.Closer, error)

// Subscribe calls f.
func (f SubscribeFunc) Subscribe(ctx context.Context, keys []string, onChange func(key, value string)) (io.Closer, error) {
	return f(ctx, keys, onChange)
}

// FileWatcher watches one file at a time.
type FileWatcher interface {
	Watch(path string, onStable func(path string)) (filewatch.Handle, error)
	Cancel(h filewatch.Handle)
}

// Regenerator runs one regeneration cycle for a wallpaper.
type Regenerator interface {
	Regenerate(ctx context.Context, path string) *Report
}

// Options configures a Monitor.
type Options struct {
	Follow    Follow
	LightMode bool
	QueueSize int
}

type settingChanged struct {
	key   string
	value string
}

type fileStable struct {
	path       string
	generation uint64
}

// Monitor is the wallpaper change state machine.
type Monitor struct {
	settings SettingsSource
	files    FileWatcher
	regen    Regenerator
	follow   Follow
	light    bool
	logger   *slog.Logger

	events  chan any
	stopped chan struct{}
	runOnce sync.Once

	mu         sync.Mutex
	path       string
	handle     filewatch.Handle
	generation uint64
}

// New creates a monitor.
func New(src SettingsSource, files FileWatcher, regen Regenerator, opts Options, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Follow == "" {
		opts.Follow = FollowBoth
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	return &Monitor{
		settings: src,
		files:    files,
		regen:    regen,
		follow:   opts.Follow,
		light:    opts.LightMode,
		logger:   logger,
		events:   make(chan any, opts.QueueSize),
		stopped:  make(chan struct{}),
	}
}

// State returns the current state and the tracked path.
func (m *Monitor) State() (State, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.path == "" {
		return Idle, ""
	}
	return Watching, m.path
}

// Run arms the file watch for initialPath (if any), subscribes to the
// wallpaper settings and processes events until ctx is done.
//
// It returns the subscription error if settings changes cannot be received,
// and nil after a normal shutdown. Run may only be called once.
func (m *Monitor) Run(ctx context.Context, initialPath string) error {
	started := false
	m.runOnce.Do(func() { started = true })
	if !started {
		return fmt.Errorf("monitor already run")
	}

	var sub io.Closer
	defer func() {
		close(m.stopped)
		m.release()
		if sub != nil {
			if err := sub.Close(); err != nil {
				m.logger.Debug("error closing settings subscription", "error", err)
			}
		}
		m.logger.Info("monitor stopped")
	}()

	if initialPath != "" {
		m.repoint(initialPath)
	}

	var err error
	sub, err = m.settings.Subscribe(ctx, settings.WallpaperKeys, func(key, value string) {
		m.post(settingChanged{key: key, value: value})
	})
	if err != nil {
		sub = nil
		return err
	}

	state, path := m.State()
	m.logger.Info("monitor started", "state", state.String(), "path", path, "follow", string(m.follow))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-m.events:
			m.dispatch(ctx, ev)
		}
	}
}

// post queues an event. It gives up once the monitor has stopped.
func (m *Monitor) post(ev any) {
	select {
	case m.events <- ev:
	case <-m.stopped:
	}
}

// dispatch processes one event. Nothing escapes it.
func (m *Monitor) dispatch(ctx context.Context, ev any) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("recovered from panic while handling event",
				"event", fmt.Sprintf("%T", ev), "panic", r, "stack", string(debug.Stack()))
		}
	}()

	switch e := ev.(type) {
	case settingChanged:
		m.onSetting(ctx, e)
	case fileStable:
		m.onFile(ctx, e)
	}
}

func (m *Monitor) onSetting(ctx context.Context, e settingChanged) {
	if m.follow == FollowActive && e.key != settings.WallpaperKey(m.light) {
		m.logger.Debug("ignoring wallpaper key for inactive mode", "key", e.key)
		return
	}

	path := DecodeURI(e.value)
	if path == "" {
		m.logger.Debug("ignoring empty wallpaper setting", "key", e.key)
		return
	}

	m.logger.Info("wallpaper setting changed", "key", e.key, "path", path)
	m.regen.Regenerate(ctx, path)
	m.repoint(path)
}

func (m *Monitor) onFile(ctx context.Context, e fileStable) {
	m.mu.Lock()
	current := e.generation == m.generation && e.path == m.path
	path := m.path
	m.mu.Unlock()

	if !current {
		m.logger.Debug("discarding stale file event", "path", e.path)
		return
	}

	m.logger.Info("wallpaper file rewritten", "path", path)
	m.regen.Regenerate(ctx, path)
}

// repoint moves the file watch to path unless it is already armed there.
func (m *Monitor) repoint(path string) {
	m.mu.Lock()
	same := path == m.path && m.handle != nil && m.handle.Armed()
	m.mu.Unlock()

	if same {
		m.logger.Debug("wallpaper watch unchanged", "path", path)
		return
	}
	m.setHandle(path)
}

// setHandle is the only place the watch slot changes. The previous handle is
// always cancelled before a new one is requested.
func (m *Monitor) setHandle(path string) {
	m.mu.Lock()
	old := m.handle
	m.handle = nil
	m.generation++
	gen := m.generation
	m.path = path
	m.mu.Unlock()

	if old != nil {
		m.files.Cancel(old)
	}
	if path == "" {
		return
	}

	h, err := m.files.Watch(path, func(p string) {
		m.post(fileStable{path: p, generation: gen})
	})
	if err != nil {
		m.logger.Warn("failed to watch wallpaper file", "path", path, "error", err)
		return
	}

	m.mu.Lock()
	m.handle = h
	m.mu.Unlock()
}

// release cancels the live handle and returns to Idle.
func (m *Monitor) release() {
	m.setHandle("")
}
