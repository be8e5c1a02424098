package monitor

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/wallhue/internal/filewatch"
	"github.com/jmylchreest/wallhue/internal/settings"
)

const waitFor = 2 * time.Second

type fakeHandle struct {
	path  string
	armed bool
}

func (h *fakeHandle) Path() string { return h.path }
func (h *fakeHandle) Armed() bool  { return h.armed }

type fakeFiles struct {
	mu        sync.Mutex
	missing   map[string]bool
	watches   []string
	cancels   []string
	live      *fakeHandle
	callbacks []func(string)
	overlap   bool
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{missing: map[string]bool{}}
}

func (f *fakeFiles) Watch(path string, onStable func(string)) (filewatch.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.live != nil {
		f.overlap = true
		return nil, filewatch.ErrAlreadyWatching
	}
	f.watches = append(f.watches, path)
	f.callbacks = append(f.callbacks, onStable)
	f.live = &fakeHandle{path: path, armed: !f.missing[path]}
	return f.live, nil
}

func (f *fakeFiles) Cancel(h filewatch.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, h.Path())
	if f.live == h {
		f.live = nil
	}
}

// fire simulates a completed write seen by the i-th watch.
func (f *fakeFiles) fire(i int) {
	f.mu.Lock()
	cb := f.callbacks[i]
	path := f.watches[i]
	f.mu.Unlock()
	cb(path)
}

func (f *fakeFiles) snapshot() (watches, cancels []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.watches...), append([]string(nil), f.cancels...)
}

type closerFunc func() error

func (c closerFunc) Close() error { return c() }

type fakeSource struct {
	err      error
	ready    chan struct{}
	onChange func(key, value string)
	closed   bool
	mu       sync.Mutex
}

func newFakeSource() *fakeSource {
	return &fakeSource{ready: make(chan struct{})}
}

func (s *fakeSource) Subscribe(_ context.Context, keys []string, onChange func(key, value string)) (io.Closer, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	s.onChange = onChange
	s.mu.Unlock()
	close(s.ready)
	return closerFunc(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		return nil
	}), nil
}

func (s *fakeSource) change(key, value string) {
	s.mu.Lock()
	cb := s.onChange
	s.mu.Unlock()
	cb(key, value)
}

type fakeRegen struct {
	paths chan string
	panic bool
}

func newFakeRegen() *fakeRegen {
	return &fakeRegen{paths: make(chan string, 32)}
}

func (r *fakeRegen) Regenerate(_ context.Context, path string) *Report {
	r.paths <- path
	if r.panic {
		r.panic = false
		panic("extractor exploded")
	}
	return &Report{Path: path}
}

func (r *fakeRegen) next(t *testing.T) string {
	t.Helper()
	select {
	case p := <-r.paths:
		return p
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for regeneration")
		return ""
	}
}

func (r *fakeRegen) none(t *testing.T) {
	t.Helper()
	select {
	case p := <-r.paths:
		t.Fatalf("unexpected regeneration for %s", p)
	case <-time.After(50 * time.Millisecond):
	}
}

type harness struct {
	m      *Monitor
	src    *fakeSource
	files  *fakeFiles
	regen  *fakeRegen
	cancel context.CancelFunc
	done   chan error
}

func startMonitor(t *testing.T, initial string, opts Options, files *fakeFiles) *harness {
	t.Helper()
	if files == nil {
		files = newFakeFiles()
	}
	h := &harness{
		src:   newFakeSource(),
		files: files,
		regen: newFakeRegen(),
		done:  make(chan error, 1),
	}
	h.m = New(h.src, h.files, h.regen, opts, nil)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.m.Run(ctx, initial) }()

	select {
	case <-h.src.ready:
	case <-time.After(waitFor):
		t.Fatal("monitor did not subscribe")
	}
	t.Cleanup(func() { h.stop(t) })
	return h
}

// stop shuts the monitor down and waits for every queued event to finish.
func (h *harness) stop(t *testing.T) {
	t.Helper()
	if h.cancel == nil {
		return
	}
	h.cancel()
	h.cancel = nil
	select {
	case err := <-h.done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("monitor did not stop")
	}
}

func TestMonitor_EndToEnd(t *testing.T) {
	h := startMonitor(t, "/a.png", Options{}, nil)

	state, path := h.m.State()
	assert.Equal(t, Watching, state)
	assert.Equal(t, "/a.png", path)

	h.src.change(settings.KeyPictureURI, "file:///b.png")
	assert.Equal(t, "/b.png", h.regen.next(t))

	assert.Eventually(t, func() bool {
		w, _ := h.files.snapshot()
		return len(w) == 2
	}, waitFor, 5*time.Millisecond)

	_, path = h.m.State()
	assert.Equal(t, "/b.png", path)
	watches, cancels := h.files.snapshot()
	assert.Equal(t, []string{"/a.png", "/b.png"}, watches)
	assert.Equal(t, []string{"/a.png"}, cancels)
	h.regen.none(t)

	h.stop(t)
	_, cancels = h.files.snapshot()
	assert.Equal(t, []string{"/a.png", "/b.png"}, cancels)
	assert.True(t, h.src.closed)
	assert.False(t, h.files.overlap)

	state, _ = h.m.State()
	assert.Equal(t, Idle, state)
}

func TestMonitor_SameSettingTwiceIsIdempotent(t *testing.T) {
	h := startMonitor(t, "", Options{}, nil)

	state, _ := h.m.State()
	assert.Equal(t, Idle, state)

	h.src.change(settings.KeyPictureURI, "file:///home/u/Pictures/a%20b.png")
	h.src.change(settings.KeyPictureURI, "file:///home/u/Pictures/a%20b.png")

	assert.Equal(t, "/home/u/Pictures/a b.png", h.regen.next(t))
	assert.Equal(t, "/home/u/Pictures/a b.png", h.regen.next(t))
	h.stop(t)

	watches, cancels := h.files.snapshot()
	assert.Equal(t, []string{"/home/u/Pictures/a b.png"}, watches)
	// Only the shutdown release.
	assert.Equal(t, []string{"/home/u/Pictures/a b.png"}, cancels)
}

func TestMonitor_EmptySettingIgnored(t *testing.T) {
	h := startMonitor(t, "/a.png", Options{}, nil)

	h.src.change(settings.KeyPictureURI, "")
	h.src.change(settings.KeyPictureURI, "file://")
	h.regen.none(t)
	h.stop(t)

	watches, _ := h.files.snapshot()
	assert.Equal(t, []string{"/a.png"}, watches)
}

func TestMonitor_FileStable(t *testing.T) {
	h := startMonitor(t, "/a.png", Options{}, nil)

	h.files.fire(0)
	assert.Equal(t, "/a.png", h.regen.next(t))
	h.stop(t)

	watches, _ := h.files.snapshot()
	assert.Equal(t, []string{"/a.png"}, watches)
}

func TestMonitor_StaleFileEventRejected(t *testing.T) {
	h := startMonitor(t, "/a.png", Options{}, nil)

	h.src.change(settings.KeyPictureURIDark, "file:///b.png")
	assert.Equal(t, "/b.png", h.regen.next(t))
	assert.Eventually(t, func() bool {
		w, _ := h.files.snapshot()
		return len(w) == 2
	}, waitFor, 5*time.Millisecond)

	h.files.fire(0) // late event for /a.png
	h.files.fire(1) // current /b.png
	assert.Equal(t, "/b.png", h.regen.next(t))
	h.regen.none(t)
}

func TestMonitor_StaleGenerationSamePath(t *testing.T) {
	files := newFakeFiles()
	files.missing["/a.png"] = true
	h := startMonitor(t, "/a.png", Options{}, files)

	// The same path is re-armed because the first handle was unarmed.
	files.mu.Lock()
	files.missing["/a.png"] = false
	files.mu.Unlock()
	h.src.change(settings.KeyPictureURI, "/a.png")
	assert.Equal(t, "/a.png", h.regen.next(t))
	assert.Eventually(t, func() bool {
		w, _ := h.files.snapshot()
		return len(w) == 2
	}, waitFor, 5*time.Millisecond)

	h.files.fire(0)
	h.regen.none(t)
	h.files.fire(1)
	assert.Equal(t, "/a.png", h.regen.next(t))
}

func TestMonitor_FollowActive(t *testing.T) {
	h := startMonitor(t, "", Options{Follow: FollowActive, LightMode: false}, nil)

	h.src.change(settings.KeyPictureURI, "file:///light.png")
	h.src.change(settings.KeyPictureURIDark, "file:///dark.png")
	assert.Equal(t, "/dark.png", h.regen.next(t))
	h.regen.none(t)
}

func TestMonitor_FollowBoth(t *testing.T) {
	h := startMonitor(t, "", Options{LightMode: true}, nil)

	h.src.change(settings.KeyPictureURI, "file:///light.png")
	h.src.change(settings.KeyPictureURIDark, "file:///dark.png")
	assert.Equal(t, "/light.png", h.regen.next(t))
	assert.Equal(t, "/dark.png", h.regen.next(t))
}

func TestMonitor_PanicDoesNotStopLoop(t *testing.T) {
	h := startMonitor(t, "", Options{}, nil)
	h.regen.panic = true

	h.src.change(settings.KeyPictureURI, "/a.png")
	assert.Equal(t, "/a.png", h.regen.next(t))
	h.src.change(settings.KeyPictureURI, "/b.png")
	assert.Equal(t, "/b.png", h.regen.next(t))
}

func TestMonitor_SubscriptionFailure(t *testing.T) {
	files := newFakeFiles()
	src := newFakeSource()
	src.err = &settings.SubscriptionError{Op: "connect to session bus", Err: errors.New("no bus")}

	m := New(src, files, newFakeRegen(), Options{}, nil)
	err := m.Run(context.Background(), "/a.png")

	var subErr *settings.SubscriptionError
	require.ErrorAs(t, err, &subErr)

	watches, cancels := files.snapshot()
	assert.Equal(t, []string{"/a.png"}, watches)
	assert.Equal(t, []string{"/a.png"}, cancels)

	state, _ := m.State()
	assert.Equal(t, Idle, state)

	assert.Error(t, m.Run(context.Background(), ""))
}

func TestMonitor_PostAfterStopDoesNotBlock(t *testing.T) {
	h := startMonitor(t, "/a.png", Options{QueueSize: 1}, nil)
	h.stop(t)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			h.files.fire(0)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("post blocked after shutdown")
	}
}

func TestParseFollow(t *testing.T) {
	f, err := ParseFollow("")
	require.NoError(t, err)
	assert.Equal(t, FollowBoth, f)

	f, err = ParseFollow("active")
	require.NoError(t, err)
	assert.Equal(t, FollowActive, f)

	_, err = ParseFollow("light")
	assert.Error(t, err)
}

func TestDecodeURI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"file:///home/u/Pictures/a%20b.png", "/home/u/Pictures/a b.png"},
		{"/home/u/Pictures/a b.png", "/home/u/Pictures/a b.png"},
		{"/home/u/100%25.png", "/home/u/100%25.png"},
		{"file://localhost/srv/w.jpg", "/srv/w.jpg"},
		{"file:///bad%zz.png", "/bad%zz.png"},
		{"file://", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeURI(tt.in))
		})
	}
}

func TestEncodeURI(t *testing.T) {
	uri := EncodeURI("/home/u/Pictures/a b.png")
	assert.Equal(t, "file:///home/u/Pictures/a%20b.png", uri)
	assert.Equal(t, "/home/u/Pictures/a b.png", DecodeURI(uri))
}
