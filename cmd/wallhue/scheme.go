package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/wallhue/internal/scheme"
)

var schemeOpts struct {
	wallpaper string
	format    string
}

// schemeEntry is one role in the printed scheme.
type schemeEntry struct {
	Role string `json:"role" yaml:"role"`
	Hex  string `json:"hex" yaml:"hex"`
	RGB  string `json:"rgb" yaml:"rgb"`
}

var schemeCmd = &cobra.Command{
	Use:   "scheme",
	Short: "Print the colour scheme extracted from a wallpaper",
	Long: `Extract a colour scheme from the wallpaper and print it without writing
any templates or touching the session.

Formats:
  text  One role per line with a colour swatch (default)
  json  Array of {role, hex, rgb}
  yaml  Same as json, as YAML`,
	RunE: runScheme,
}

func init() {
	rootCmd.AddCommand(schemeCmd)

	schemeCmd.Flags().StringVarP(&schemeOpts.wallpaper, "wallpaper", "w", "",
		"Image to extract from (default: current wallpaper)")
	schemeCmd.Flags().StringVarP(&schemeOpts.format, "format", "f", "text",
		"Output format (text, json, yaml)")
}

func runScheme(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := newStore()
	if err != nil {
		return err
	}

	path, err := resolveWallpaper(ctx, store, schemeOpts.wallpaper)
	if err != nil {
		return err
	}

	s, err := newExtractor().Extract(ctx, path)
	if err != nil {
		return err
	}

	return writeScheme(cmd.OutOrStdout(), s, schemeOpts.format)
}

func writeScheme(w io.Writer, s *scheme.Scheme, format string) error {
	entries := make([]schemeEntry, 0, s.Len())
	for role, c := range s.All() {
		entries = append(entries, schemeEntry{Role: role, Hex: c.Hex(), RGB: c.RGB()})
	}

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		data, err := yaml.Marshal(entries)
		if err != nil {
			return fmt.Errorf("failed to marshal scheme: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "text", "":
		width := 0
		for _, e := range entries {
			width = max(width, len(e.Role))
		}
		for _, e := range entries {
			swatch := lipgloss.NewStyle().
				Background(lipgloss.Color(e.Hex)).
				Render("    ")
			if _, err := fmt.Fprintf(w, "%s  %-*s  %s  %s\n", swatch, width, e.Role, e.Hex, e.RGB); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (text, json, yaml)", format)
	}
}
