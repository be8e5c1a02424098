package template

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// EmbeddedTemplates contains the bundled default templates.
//
//go:embed templates/*
var EmbeddedTemplates embed.FS

// ListEmbeddedTemplates returns the file names of the bundled templates.
func ListEmbeddedTemplates() ([]string, error) {
	entries, err := fs.ReadDir(EmbeddedTemplates, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to list embedded templates: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// DefaultDescriptors returns descriptors for the bundled templates, with
// template paths relative to the config directory.
func DefaultDescriptors(themeName, themesDir string) []Descriptor {
	light := filepath.Join(themesDir, themeName+"-light")
	dark := filepath.Join(themesDir, themeName+"-dark")
	return []Descriptor{
		{Name: "gtk", TemplatePath: "./templates/gtk.css", OutputPath: filepath.Join(light, "gtk-3.0", "gtk.css")},
		{Name: "gtkDark", TemplatePath: "./templates/gtk-dark.css", OutputPath: filepath.Join(dark, "gtk-3.0", "gtk.css")},
		{Name: "shell", TemplatePath: "./templates/gnome-shell.css", OutputPath: filepath.Join(light, "gnome-shell", "gnome-shell.css")},
		{Name: "shellDark", TemplatePath: "./templates/gnome-shell-dark.css", OutputPath: filepath.Join(dark, "gnome-shell", "gnome-shell.css")},
	}
}

// DumpTemplates writes the bundled templates into dir/templates.
// Existing files are kept unless force is set. It returns the written paths.
func DumpTemplates(dir string, force bool) ([]string, error) {
	names, err := ListEmbeddedTemplates()
	if err != nil {
		return nil, err
	}

	target := filepath.Join(dir, "templates")
	if err := os.MkdirAll(target, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %q: %w", target, err)
	}

	var written []string
	var errs []error
	for _, name := range names {
		out := filepath.Join(target, name)
		if !force {
			if _, err := os.Stat(out); err == nil {
				errs = append(errs, fmt.Errorf("template already exists: %s (use --force to overwrite)", out))
				continue
			}
		}

		content, err := EmbeddedTemplates.ReadFile(path.Join("templates", name))
		if err != nil {
			return written, fmt.Errorf("failed to read embedded template %q: %w", name, err)
		}
		if err := os.WriteFile(out, content, 0644); err != nil {
			return written, fmt.Errorf("failed to write template to %q: %w", out, err)
		}
		written = append(written, out)
	}

	return written, errors.Join(errs...)
}
