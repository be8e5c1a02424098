package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/diamondburned/gotk4/pkg/gio/v2"
)

// GIO is a Store backed by GLib's GSettings API.
//
// Schemas are looked up before use: creating a GSettings object for a schema
// that is not installed aborts the process.
type GIO struct{}

// NewGIO creates a GSettings backed store.
func NewGIO() *GIO {
	return &GIO{}
}

func (g *GIO) open(schema, key string) (*gio.Settings, error) {
	source := gio.SettingsSchemaSourceGetDefault()
	if source == nil {
		return nil, fmt.Errorf("%w: %s (no schema source)", ErrUnknownSchema, schema)
	}
	s := source.Lookup(schema, true)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, schema)
	}
	if !s.HasKey(key) {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownKey, schema, key)
	}
	return gio.NewSettings(schema), nil
}

// Get returns the string value of schema/key.
func (g *GIO) Get(ctx context.Context, schema, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s, err := g.open(schema, key)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s: %w", schema, key, err)
	}
	return s.String(key), nil
}

// Set writes a string value to schema/key and flushes pending writes.
func (g *GIO) Set(ctx context.Context, schema, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := g.open(schema, key)
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", schema, key, err)
	}
	if !s.SetString(key, value) {
		return fmt.Errorf("failed to write %s %s: %w", schema, key, errors.New("key is not writable"))
	}
	gio.SettingsSync()
	return nil
}
