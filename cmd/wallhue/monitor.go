package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/wallhue/internal/filewatch"
	"github.com/jmylchreest/wallhue/internal/monitor"
	"github.com/jmylchreest/wallhue/internal/settings"
)

var monitorOpts struct {
	regenerate bool
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Regenerate the theme whenever the wallpaper changes",
	Long: `Watch the GNOME wallpaper settings and the wallpaper file itself, and
regenerate and apply the theme whenever either changes.

The wallpaper is tracked through both picture-uri and picture-uri-dark unless
monitor.follow is set to "active". Rewriting the current wallpaper file in
place also triggers a regeneration once the write has settled.

Runs until interrupted.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().BoolVar(&monitorOpts.regenerate, "regenerate", false,
		"Regenerate the theme for the current wallpaper before watching")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	setupLogger(slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore()
	if err != nil {
		return err
	}

	follow, err := monitor.ParseFollow(cfg.Monitor.Follow)
	if err != nil {
		return err
	}

	initial, err := currentWallpaper(ctx, store)
	if err != nil {
		logger.Warn("failed to read current wallpaper, starting idle", "error", err)
		initial = ""
	}

	pipeline := newPipeline(store)
	if monitorOpts.regenerate && initial != "" {
		pipeline.Regenerate(ctx, initial)
	}

	watch := settings.NewWatch(store, settings.BackgroundSchema, logger)
	source := monitor.SubscribeFunc(func(ctx context.Context, keys []string, onChange func(key, value string)) (io.Closer, error) {
		sub, err := watch.Subscribe(ctx, keys, onChange)
		if err != nil {
			return nil, err
		}
		return sub, nil
	})

	files := filewatch.NewWatcher(cfg.Monitor.Debounce.Duration(), logger)
	defer files.Close()

	m := monitor.New(source, files, pipeline, monitor.Options{
		Follow:    follow,
		LightMode: cfg.General.LightMode,
	}, logger)

	err = m.Run(ctx, initial)
	var subErr *settings.SubscriptionError
	if errors.As(err, &subErr) {
		logger.Error("cannot receive wallpaper changes", "error", err)
	}
	return err
}
