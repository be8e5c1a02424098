package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/wallhue/internal/template"
)

var templatesOpts struct {
	dump  bool
	force bool
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List or install theme templates",
	Long: `List the configured templates and the mode each one is rendered in.

A template whose name ends in "dark" is rendered in dark mode only, every
other template in light mode only.

Use --dump to copy the bundled templates into the config directory so they
can be edited. A default config.toml is written alongside them when none
exists.`,
	RunE: runTemplates,
}

func init() {
	rootCmd.AddCommand(templatesCmd)

	templatesCmd.Flags().BoolVar(&templatesOpts.dump, "dump", false,
		"Write the bundled templates to the config directory")
	templatesCmd.Flags().BoolVar(&templatesOpts.force, "force", false,
		"Overwrite existing templates with --dump")
}

func runTemplates(cmd *cobra.Command, args []string) error {
	if templatesOpts.dump {
		return dumpTemplates(cmd)
	}

	out := cmd.OutOrStdout()
	base := cfg.BaseDir()
	for _, d := range cfg.Descriptors() {
		_, _ = fmt.Fprintf(out, "%-6s %-16s %s -> %s\n",
			strings.ToUpper(d.Variant()), d.Name, d.ResolveTemplatePath(base), d.ResolveOutputPath())

		if other := otherVariant(d); strings.Contains(strings.ToLower(d.TemplatePath), other) {
			logger.Warn("template path suggests the other mode",
				"template", d.Name, "mode", d.Variant(), "path", d.TemplatePath)
		}
	}
	return nil
}

func otherVariant(d template.Descriptor) string {
	if d.IsDark() {
		return "light"
	}
	return "dark"
}

func dumpTemplates(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	written, err := template.DumpTemplates(cfg.BaseDir(), templatesOpts.force)
	for _, p := range written {
		_, _ = fmt.Fprintf(out, "wrote %s\n", p)
	}

	if _, statErr := os.Stat(cfg.Path()); errors.Is(statErr, os.ErrNotExist) {
		if saveErr := cfg.Save(cfg.Path()); saveErr != nil {
			err = errors.Join(err, saveErr)
		} else {
			_, _ = fmt.Fprintf(out, "wrote %s\n", cfg.Path())
		}
	}
	return err
}
