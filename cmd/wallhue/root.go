// Package main provides the CLI entrypoint for wallhue.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/wallhue/internal/config"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		light      bool
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wallhue",
	Short: "Derive a GNOME theme from the desktop wallpaper",
	Long: `wallhue extracts a colour scheme from the GNOME desktop wallpaper, renders
it into theme templates and applies the result to the running session.

Use "wallhue monitor" to keep the theme in step with the wallpaper, or
"wallhue generate" to regenerate it once.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger(slog.LevelWarn)

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if cmd.Flags().Changed("light") {
			cfg.General.LightMode = globalOpts.light
		}

		logger.Debug("loaded configuration", "path", cfg.Path(), "light_mode", cfg.General.LightMode)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/wallhue/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&globalOpts.light, "light", false,
		"Generate the light variant (overrides general.light_mode)")
}

// setupLogger configures the global slog logger. --verbose always selects
// debug output.
func setupLogger(level slog.Level) {
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}
