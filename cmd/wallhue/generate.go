package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/wallhue/internal/template"
)

var generateOpts struct {
	wallpaper string
	noApply   bool
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Regenerate and apply the theme once",
	Long: `Extract a colour scheme from the wallpaper, render every template for the
current mode and apply the theme to the running session.

The wallpaper defaults to the one currently set for the selected mode.

Examples:
  # Regenerate from the current wallpaper
  wallhue generate

  # Light theme from a specific image, without touching the session
  wallhue generate --light --wallpaper ~/Pictures/forest.jpg --no-apply`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generateOpts.wallpaper, "wallpaper", "w", "",
		"Image to derive the theme from (default: current wallpaper)")
	generateCmd.Flags().BoolVar(&generateOpts.noApply, "no-apply", false,
		"Only write the templates")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := newStore()
	if err != nil {
		return err
	}

	path, err := resolveWallpaper(ctx, store, generateOpts.wallpaper)
	if err != nil {
		return err
	}

	if generateOpts.noApply {
		cfg.Apply.Enabled = false
	}

	report := newPipeline(store).Regenerate(ctx, path)
	if report.ExtractErr != nil {
		return report.ExtractErr
	}

	out := cmd.OutOrStdout()
	for _, d := range cfg.Descriptors() {
		o := report.Results[d.Name]
		switch o.Status {
		case template.StatusWritten:
			_, _ = fmt.Fprintf(out, "wrote    %-16s %s\n", d.Name, o.OutputPath)
		case template.StatusFailed:
			_, _ = fmt.Fprintf(out, "failed   %-16s %v\n", d.Name, o.Err)
		}
	}

	if err := report.Err(); err != nil {
		return fmt.Errorf("theme generated with errors: %w", err)
	}
	return nil
}
