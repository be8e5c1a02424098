// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/wallhue/internal/apply"
	"github.com/jmylchreest/wallhue/internal/colour"
	"github.com/jmylchreest/wallhue/internal/filewatch"
	"github.com/jmylchreest/wallhue/internal/monitor"
	"github.com/jmylchreest/wallhue/internal/settings"
	"github.com/jmylchreest/wallhue/internal/template"
)

// Default configuration values.
const (
	DefaultThemesDir = "~/.local/share/themes"
	MaxColourCount   = 64
)

// Config represents the wallhue configuration.
type Config struct {
	General   GeneralConfig         `toml:"general"`
	Settings  SettingsConfig        `toml:"settings"`
	Monitor   MonitorConfig         `toml:"monitor"`
	Pipeline  PipelineConfig        `toml:"pipeline"`
	Extract   ExtractConfig         `toml:"extract"`
	Apply     ApplyConfig           `toml:"apply"`
	Templates []template.Descriptor `toml:"template"`

	path string
}

// GeneralConfig holds options shared by every command.
type GeneralConfig struct {
	LightMode bool   `toml:"light_mode"`
	ThemeName string `toml:"theme_name"` // Base name of the generated themes
}

// SettingsConfig selects how GSettings are read and written.
type SettingsConfig struct {
	Backend string `toml:"backend"` // gio, gsettings
}

// MonitorConfig holds monitor options.
type MonitorConfig struct {
	Follow   string   `toml:"follow"`   // both, active
	Debounce Duration `toml:"debounce"` // Quiet period before a rewritten file is read
}

// PipelineConfig holds regeneration options.
type PipelineConfig struct {
	Timeout Duration `toml:"timeout"` // 0 = no limit
}

// ExtractConfig holds colour extraction options.
type ExtractConfig struct {
	ColourCount int `toml:"colour_count"`
}

// ApplyConfig holds desktop apply options.
type ApplyConfig struct {
	Enabled     bool                 `toml:"enabled"`
	SettleDelay Duration             `toml:"settle_delay"`
	ThemesDir   string               `toml:"themes_dir"`
	Reload      []apply.ReloadTarget `toml:"reload"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			LightMode: false,
			ThemeName: apply.DefaultThemeName,
		},
		Settings: SettingsConfig{
			Backend: settings.BackendGIO,
		},
		Monitor: MonitorConfig{
			Follow:   string(monitor.FollowBoth),
			Debounce: Duration(filewatch.DefaultQuietPeriod),
		},
		Pipeline: PipelineConfig{
			Timeout: Duration(monitor.DefaultTimeout),
		},
		Extract: ExtractConfig{
			ColourCount: colour.DefaultColourCount,
		},
		Apply: ApplyConfig{
			Enabled:     true,
			SettleDelay: Duration(apply.DefaultSettleDelay),
			ThemesDir:   DefaultThemesDir,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "wallhue", "config.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = c.Path()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	if c.path == "" {
		return ConfigPath()
	}
	return c.path
}

// BaseDir returns the directory "./" template paths are resolved against.
func (c *Config) BaseDir() string {
	return filepath.Dir(c.Path())
}

// ThemesDir returns the themes directory with "~" expanded.
func (c *Config) ThemesDir() string {
	return template.ExpandHome(c.Apply.ThemesDir)
}

// Descriptors returns the configured templates, or the bundled ones when
// none are configured.
func (c *Config) Descriptors() []template.Descriptor {
	if len(c.Templates) > 0 {
		return c.Templates
	}
	return template.DefaultDescriptors(c.General.ThemeName, c.Apply.ThemesDir)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.General.ThemeName == "" {
		return errors.New("theme_name must not be empty")
	}

	switch c.Settings.Backend {
	case settings.BackendGIO, settings.BackendCLI:
	default:
		return fmt.Errorf("invalid settings backend %q, must be %q or %q",
			c.Settings.Backend, settings.BackendGIO, settings.BackendCLI)
	}

	if _, err := monitor.ParseFollow(c.Monitor.Follow); err != nil {
		return err
	}

	for name, d := range map[string]Duration{
		"debounce":     c.Monitor.Debounce,
		"timeout":      c.Pipeline.Timeout,
		"settle_delay": c.Apply.SettleDelay,
	} {
		if time.Duration(d) < 0 {
			return fmt.Errorf("%s must not be negative, got %s", name, time.Duration(d))
		}
	}

	if c.Extract.ColourCount < 2 || c.Extract.ColourCount > MaxColourCount {
		return fmt.Errorf("colour_count must be between 2 and %d, got %d", MaxColourCount, c.Extract.ColourCount)
	}

	for i, r := range c.Apply.Reload {
		if r.Process == "" {
			return fmt.Errorf("apply.reload[%d]: process must not be empty", i)
		}
		if _, err := apply.NormalizeSignal(r.Signal); err != nil {
			return fmt.Errorf("apply.reload[%d]: %w", i, err)
		}
	}

	seen := make(map[string]bool, len(c.Templates))
	for i, d := range c.Templates {
		switch {
		case d.Name == "":
			return fmt.Errorf("template[%d]: name must not be empty", i)
		case seen[d.Name]:
			return fmt.Errorf("template[%d]: duplicate name %q", i, d.Name)
		case d.TemplatePath == "":
			return fmt.Errorf("template %q: template_path must not be empty", d.Name)
		case d.OutputPath == "":
			return fmt.Errorf("template %q: output_path must not be empty", d.Name)
		}
		seen[d.Name] = true
	}

	return nil
}
