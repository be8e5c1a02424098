package template

import (
	"os"
	"path/filepath"
	"strings"
)

// Descriptor maps one template file to one generated output file.
// A name ending in "dark" (any case) marks a dark-only descriptor;
// every other descriptor is light-only.
type Descriptor struct {
	Name         string `toml:"name"`
	TemplatePath string `toml:"template_path"`
	OutputPath   string `toml:"output_path"`
}

// IsDark reports whether the descriptor targets dark mode.
func (d Descriptor) IsDark() bool {
	return strings.HasSuffix(strings.ToUpper(d.Name), "DARK")
}

// Applies reports whether the descriptor is processed in the given mode.
func (d Descriptor) Applies(lightMode bool) bool {
	return d.IsDark() != lightMode
}

// Variant returns "dark" or "light".
func (d Descriptor) Variant() string {
	if d.IsDark() {
		return "dark"
	}
	return "light"
}

// ResolveTemplatePath returns the template location. Paths beginning with
// "." are relative to baseDir; "~" expands to the home directory.
func (d Descriptor) ResolveTemplatePath(baseDir string) string {
	p := d.TemplatePath
	if strings.HasPrefix(p, ".") && baseDir != "" {
		return filepath.Join(baseDir, p)
	}
	return ExpandHome(p)
}

// ResolveOutputPath returns the output location with "~" expanded.
func (d Descriptor) ResolveOutputPath() string {
	return ExpandHome(d.OutputPath)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
