package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmylchreest/wallhue/internal/apply"
	"github.com/jmylchreest/wallhue/internal/colour"
	"github.com/jmylchreest/wallhue/internal/monitor"
	"github.com/jmylchreest/wallhue/internal/settings"
	"github.com/jmylchreest/wallhue/internal/template"
)

func newStore() (settings.Store, error) {
	return settings.NewStore(cfg.Settings.Backend)
}

func newExtractor() *colour.Extractor {
	return colour.NewExtractor(colour.Options{
		ColourCount: cfg.Extract.ColourCount,
		LightMode:   cfg.General.LightMode,
	}, logger)
}

func newEngine() *template.Engine {
	return template.NewEngine(logger).WithFallback(template.EmbeddedTemplates)
}

// newPipeline builds the extract, generate and apply chain. Apply is skipped
// when disabled in the configuration.
func newPipeline(store settings.Store) *monitor.Pipeline {
	var applier monitor.Applier
	if cfg.Apply.Enabled {
		applier = apply.New(store, apply.Options{
			ThemeName:   cfg.General.ThemeName,
			ThemesDir:   cfg.ThemesDir(),
			SettleDelay: cfg.Apply.SettleDelay.Duration(),
			Reload:      cfg.Apply.Reload,
		}, logger)
	}

	return monitor.NewPipeline(newExtractor(), newEngine(), applier, monitor.PipelineOptions{
		Descriptors: cfg.Descriptors(),
		LightMode:   cfg.General.LightMode,
		BaseDir:     cfg.BaseDir(),
		Timeout:     cfg.Pipeline.Timeout.Duration(),
	}, logger)
}

// currentWallpaper returns the wallpaper path for the configured mode.
func currentWallpaper(ctx context.Context, store settings.Store) (string, error) {
	key := settings.WallpaperKey(cfg.General.LightMode)
	uri, err := store.Get(ctx, settings.BackgroundSchema, key)
	if err != nil {
		return "", err
	}
	return monitor.DecodeURI(uri), nil
}

// resolveWallpaper returns path made absolute, or the current wallpaper when
// path is empty.
func resolveWallpaper(ctx context.Context, store settings.Store, path string) (string, error) {
	if path == "" {
		p, err := currentWallpaper(ctx, store)
		if err != nil {
			return "", fmt.Errorf("failed to read current wallpaper: %w", err)
		}
		if p == "" {
			return "", fmt.Errorf("no wallpaper is set; pass --wallpaper")
		}
		return p, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("wallpaper not found: %w", err)
	}
	return abs, nil
}
