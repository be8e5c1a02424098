// Package settings reads, writes and watches GNOME GSettings keys.
//
// Values are always read fresh from the store. Change notifications come
// from the dconf writer service on the session bus, which announces every
// write made through GSettings.
package settings

import (
	"context"
	"errors"
	"fmt"
)

// Schemas and keys used by wallhue.
const (
	BackgroundSchema  = "org.gnome.desktop.background"
	KeyPictureURI     = "picture-uri"
	KeyPictureURIDark = "picture-uri-dark"
	KeyPictureOptions = "picture-options"

	InterfaceSchema = "org.gnome.desktop.interface"
	KeyColorScheme  = "color-scheme"
	KeyGtkTheme     = "gtk-theme"

	UserThemeSchema = "org.gnome.shell.extensions.user-theme"
	KeyUserTheme    = "name"
)

// WallpaperKeys are the keys the monitor subscribes to.
var WallpaperKeys = []string{KeyPictureURI, KeyPictureURIDark}

// WallpaperKey returns the wallpaper URI key for the given mode.
func WallpaperKey(lightMode bool) string {
	if lightMode {
		return KeyPictureURI
	}
	return KeyPictureURIDark
}

var (
	// ErrUnknownSchema is returned when a schema is not installed.
	ErrUnknownSchema = errors.New("schema not installed")

	// ErrUnknownKey is returned when a schema has no such key.
	ErrUnknownKey = errors.New("no such key")
)

// Store reads and writes string settings.
type Store interface {
	Get(ctx context.Context, schema, key string) (string, error)
	Set(ctx context.Context, schema, key, value string) error
}

// SubscriptionError reports that change notifications cannot be received.
// The monitor cannot work without them.
type SubscriptionError struct {
	Op  string
	Err error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("settings subscription: %s: %v", e.Op, e.Err)
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}

// NewStore returns the store for the named backend: "gio" or "gsettings".
func NewStore(backend string) (Store, error) {
	switch backend {
	case "", BackendGIO:
		return NewGIO(), nil
	case BackendCLI:
		return NewCLI(nil), nil
	default:
		return nil, fmt.Errorf("unknown settings backend %q", backend)
	}
}

// Backend names.
const (
	BackendGIO = "gio"
	BackendCLI = "gsettings"
)
