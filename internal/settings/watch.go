package settings

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	dconfInterface = "ca.desrt.dconf.Writer"
	dconfMember    = "Notify"
	dconfUserPath  = dbus.ObjectPath("/ca/desrt/dconf/Writer/user")
)

// Watch subscribes to changes of keys in one schema.
type Watch struct {
	store   Store
	schema  string
	logger  *slog.Logger
	connect func() (*dbus.Conn, error)
}

// NewWatch creates a watch for schema, reading changed values from store.
func NewWatch(store Store, schema string, logger *slog.Logger) *Watch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watch{
		store:   store,
		schema:  schema,
		logger:  logger,
		connect: func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() },
	}
}

// Subscription is a live change subscription.
type Subscription struct {
	conn    *dbus.Conn
	signals chan *dbus.Signal
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once

	watch    *Watch
	keys     []string
	onChange func(key, value string)
}

// Subscribe starts delivering changes of keys to onChange. onChange runs on
// the subscription's goroutine with the value read fresh from the store.
// The subscription ends when ctx is done or Close is called.
func (w *Watch) Subscribe(ctx context.Context, keys []string, onChange func(key, value string)) (*Subscription, error) {
	conn, err := w.connect()
	if err != nil {
		return nil, &SubscriptionError{Op: "connect to session bus", Err: err}
	}

	if err := conn.AddMatchSignal(matchOptions()...); err != nil {
		_ = conn.Close()
		return nil, &SubscriptionError{Op: "add dconf match rule", Err: err}
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		conn:     conn,
		signals:  make(chan *dbus.Signal, 16),
		cancel:   cancel,
		stopped:  make(chan struct{}),
		watch:    w,
		keys:     append([]string(nil), keys...),
		onChange: onChange,
	}
	conn.Signal(sub.signals)

	w.logger.Debug("subscribed to settings changes", "schema", w.schema, "keys", keys)

	go sub.run(ctx)
	return sub, nil
}

func matchOptions() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchInterface(dconfInterface),
		dbus.WithMatchMember(dconfMember),
		dbus.WithMatchObjectPath(dconfUserPath),
	}
}

// Close ends the subscription, removes the match rule and closes the bus
// connection. It waits for any running onChange call to return.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		if s.conn == nil {
			return
		}
		s.conn.RemoveSignal(s.signals)
		if rerr := s.conn.RemoveMatchSignal(matchOptions()...); rerr != nil {
			s.watch.logger.Debug("failed to remove dconf match rule", "error", rerr)
		}
		err = s.conn.Close()
	})
	<-s.stopped
	return err
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.stopped)
	for {
		select {
		case sig, ok := <-s.signals:
			if !ok {
				return
			}
			s.handle(ctx, sig)
		case <-ctx.Done():
			return
		}
	}
}

// handle maps a dconf Notify signal to changed keys and reports each one.
func (s *Subscription) handle(ctx context.Context, sig *dbus.Signal) {
	if sig == nil || sig.Name != dconfInterface+"."+dconfMember {
		return
	}
	// Notify(s prefix, as paths, s tag)
	if len(sig.Body) < 2 {
		s.watch.logger.Warn("malformed dconf notification", "body_len", len(sig.Body))
		return
	}
	prefix, ok := sig.Body[0].(string)
	if !ok {
		s.watch.logger.Warn("invalid dconf notification prefix")
		return
	}
	paths, ok := sig.Body[1].([]string)
	if !ok {
		s.watch.logger.Warn("invalid dconf notification paths")
		return
	}

	for _, key := range changedKeys(schemaDir(s.watch.schema), s.keys, prefix, paths) {
		if ctx.Err() != nil {
			return
		}
		value, err := s.watch.store.Get(ctx, s.watch.schema, key)
		if err != nil {
			s.watch.logger.Warn("failed to read changed setting", "key", key, "error", err)
			continue
		}
		s.watch.logger.Debug("setting changed", "key", key, "value", value)
		if s.onChange != nil {
			s.onChange(key, value)
		}
	}
}

// schemaDir returns the dconf directory of a relocatable-free schema,
// e.g. /org/gnome/desktop/background/.
func schemaDir(schema string) string {
	return "/" + strings.ReplaceAll(schema, ".", "/") + "/"
}

// changedKeys returns the keys under dir touched by a dconf notification.
// Each changed location is prefix+path; a location ending in "/" marks a
// whole directory as changed.
func changedKeys(dir string, keys []string, prefix string, paths []string) []string {
	if len(paths) == 0 {
		paths = []string{""}
	}

	var changed []string
	for _, key := range keys {
		full := dir + key
		for _, p := range paths {
			loc := prefix + p
			if loc == full || (strings.HasSuffix(loc, "/") && strings.HasPrefix(full, loc)) {
				changed = append(changed, key)
				break
			}
		}
	}
	return changed
}
