package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/wallhue/internal/apply"
	"github.com/jmylchreest/wallhue/internal/colour"
	"github.com/jmylchreest/wallhue/internal/monitor"
)

var setOpts struct {
	regenerate bool
}

var setCmd = &cobra.Command{
	Use:   "set <image>",
	Short: "Set the desktop wallpaper",
	Long: `Set the wallpaper for both light and dark mode.

A running "wallhue monitor" picks the change up by itself. Use --regenerate
to rebuild the theme immediately without a monitor.

Examples:
  wallhue set ~/Pictures/forest.jpg
  wallhue set --regenerate ./mountains.png`,
	Args: cobra.ExactArgs(1),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)

	setCmd.Flags().BoolVarP(&setOpts.regenerate, "regenerate", "r", false,
		"Regenerate and apply the theme after setting the wallpaper")
}

func runSet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("wallpaper not found: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if !colour.IsImageFile(path) {
		logger.Warn("file extension is not a known image type", "path", path)
	}

	store, err := newStore()
	if err != nil {
		return err
	}

	if err := apply.SetWallpaper(ctx, store, monitor.EncodeURI(path)); err != nil {
		return err
	}
	logger.Info("wallpaper set", "path", path)

	if !setOpts.regenerate {
		return nil
	}
	return newPipeline(store).Regenerate(ctx, path).Err()
}
