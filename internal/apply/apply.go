// Package apply switches the running GNOME session to the generated theme.
package apply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmylchreest/wallhue/internal/scheme"
	"github.com/jmylchreest/wallhue/internal/settings"
)

// Default option values.
const (
	DefaultThemeName   = "Wallhue"
	DefaultSettleDelay = 500 * time.Millisecond
)

// ReloadTarget names processes to signal after the theme changes.
type ReloadTarget struct {
	Process string `toml:"process"`
	Signal  string `toml:"signal"`
}

// Options configures an Applier.
type Options struct {
	// ThemeName is the base name; variants are "<name>-light" and "<name>-dark".
	ThemeName string
	// ThemesDir holds the generated theme directories.
	ThemesDir string
	// ConfigDir is the user configuration directory holding gtk-3.0/gtk.css.
	ConfigDir string
	// SettleDelay is how long to wait between switching a theme away and back.
	SettleDelay time.Duration
	Reload      []ReloadTarget
}

// ApplyError collects the steps that failed while applying a theme.
type ApplyError struct {
	Err error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply theme: %v", e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Applier applies a generated theme to the desktop.
type Applier struct {
	store  settings.Store
	opts   Options
	logger *slog.Logger

	signal func(process, signal string) (int, error)
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates an Applier writing settings to store.
func New(store settings.Store, opts Options, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ThemeName == "" {
		opts.ThemeName = DefaultThemeName
	}
	return &Applier{
		store:  store,
		opts:   opts,
		logger: logger,
		signal: signalProcesses,
		sleep:  sleepContext,
	}
}

// ThemeVariant returns the theme directory name for a mode.
func ThemeVariant(themeName string, lightMode bool) string {
	if lightMode {
		return themeName + "-light"
	}
	return themeName + "-dark"
}

// Apply switches the desktop to the generated theme for the given mode.
// Every step is attempted; failures are joined into an *ApplyError.
func (a *Applier) Apply(ctx context.Context, s *scheme.Scheme, lightMode bool) error {
	variant := ThemeVariant(a.opts.ThemeName, lightMode)
	if s == nil {
		return &ApplyError{Err: errors.New("no colour scheme")}
	}
	a.logger.Info("applying theme", "theme", variant, "roles", s.Len())

	var errs []error
	step := func(name string, err error) {
		if err != nil {
			a.logger.Warn("theme apply step failed", "step", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if lightMode {
		step("link dark stylesheet", a.linkDarkStylesheet())
	}

	colorScheme := "prefer-dark"
	if lightMode {
		colorScheme = "prefer-light"
	}
	step("set color scheme", a.store.Set(ctx, settings.InterfaceSchema, settings.KeyColorScheme, colorScheme))
	step("remove gtk override", a.removeGtkOverride())
	step("reload gtk theme", a.toggle(ctx, settings.InterfaceSchema, settings.KeyGtkTheme, "Adwaita", variant))
	step("reload shell theme", a.toggle(ctx, settings.UserThemeSchema, settings.KeyUserTheme, "Default", variant))
	step("reload applications", a.reloadProcesses())

	if len(errs) > 0 {
		return &ApplyError{Err: errors.Join(errs...)}
	}
	return nil
}

// linkDarkStylesheet points gtk-dark.css at gtk.css in the light theme so
// applications asking for the dark variant still get the light colours.
func (a *Applier) linkDarkStylesheet() error {
	dir := filepath.Join(a.opts.ThemesDir, ThemeVariant(a.opts.ThemeName, true), "gtk-3.0")
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			a.logger.Debug("light theme directory missing, not linking gtk-dark.css", "path", dir)
			return nil
		}
		return err
	}

	dark := filepath.Join(dir, "gtk-dark.css")
	if _, err := os.Lstat(dark); err == nil {
		if err := os.Remove(dark); err != nil {
			return err
		}
	}
	if err := os.Symlink(filepath.Join(dir, "gtk.css"), dark); err != nil {
		return err
	}
	a.logger.Debug("linked gtk-dark.css to gtk.css", "path", dir)
	return nil
}

// removeGtkOverride deletes ~/.config/gtk-3.0/gtk.css, which would otherwise
// take precedence over the theme.
func (a *Applier) removeGtkOverride() error {
	dir := a.opts.ConfigDir
	if dir == "" {
		var err error
		if dir, err = os.UserConfigDir(); err != nil {
			return err
		}
	}
	path := filepath.Join(dir, "gtk-3.0", "gtk.css")
	err := os.Remove(path)
	switch {
	case err == nil:
		a.logger.Info("removed global gtk override", "path", path)
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

// toggle sets key to a neutral value and then to value, forcing consumers to
// reload a theme whose name did not change.
func (a *Applier) toggle(ctx context.Context, schema, key, neutral, value string) error {
	if err := a.store.Set(ctx, schema, key, neutral); err != nil {
		return err
	}
	if err := a.sleep(ctx, a.opts.SettleDelay); err != nil {
		return err
	}
	return a.store.Set(ctx, schema, key, value)
}

func (a *Applier) reloadProcesses() error {
	var errs []error
	for _, t := range a.opts.Reload {
		n, err := a.signal(t.Process, t.Signal)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Process, err))
			continue
		}
		if n == 0 {
			a.logger.Debug("no running instances to reload", "process", t.Process)
			continue
		}
		a.logger.Info("reloaded application", "process", t.Process, "signal", t.Signal, "instances", n)
	}
	return errors.Join(errs...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetWallpaper points both wallpaper keys at uri, zoomed to fill the screen.
func SetWallpaper(ctx context.Context, store settings.Store, uri string) error {
	steps := []struct{ key, value string }{
		{settings.KeyPictureOptions, "zoom"},
		{settings.KeyPictureURI, uri},
		{settings.KeyPictureURIDark, uri},
	}
	for _, st := range steps {
		if err := store.Set(ctx, settings.BackgroundSchema, st.key, st.value); err != nil {
			return fmt.Errorf("failed to set wallpaper: %w", err)
		}
	}
	return nil
}
