// Package template renders colour scheme tokens into user templates and
// writes the generated configuration files.
package template

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/wallhue/internal/scheme"
)

// Status is the result of processing one descriptor.
type Status int

const (
	StatusSkipped Status = iota
	StatusWritten
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusWritten:
		return "written"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome describes what happened to a single descriptor.
type Outcome struct {
	Status     Status
	OutputPath string
	Bytes      int
	Err        error
}

// Results maps descriptor name to outcome.
type Results map[string]Outcome

// Count returns how many descriptors ended with status s.
func (r Results) Count(s Status) int {
	n := 0
	for _, o := range r {
		if o.Status == s {
			n++
		}
	}
	return n
}

// TemplateError reports a failure to read a template or write its output.
type TemplateError struct {
	Name string
	Op   string
	Path string
	Err  error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %s: %s %s: %v", e.Name, e.Op, e.Path, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// Context carries the per-cycle inputs for generation. It is built fresh
// for every regeneration and not retained.
type Context struct {
	Scheme        *scheme.Scheme
	WallpaperPath string
	LightMode     bool
	BaseDir       string
}

// Engine substitutes scheme tokens into templates and writes the results.
type Engine struct {
	logger   *slog.Logger
	fileMode os.FileMode
	fallback fs.FS
}

// NewEngine creates a template engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger:   logger,
		fileMode: 0644,
	}
}

// WithFallback makes the engine read "./" template paths from fsys when they
// do not exist under the base directory.
func (e *Engine) WithFallback(fsys fs.FS) *Engine {
	e.fallback = fsys
	return e
}

// Generate processes descriptors in order. A failing descriptor does not
// stop the batch.
func (e *Engine) Generate(gctx Context, descriptors []Descriptor) Results {
	results := make(Results, len(descriptors))
	if gctx.Scheme == nil {
		for _, d := range descriptors {
			results[d.Name] = Outcome{Status: StatusFailed, Err: fmt.Errorf("template %s: no colour scheme", d.Name)}
		}
		return results
	}

	tokens := Tokens(gctx.Scheme, gctx.WallpaperPath)
	for _, d := range descriptors {
		results[d.Name] = e.render(d, gctx, tokens)
	}
	return results
}

func (e *Engine) render(d Descriptor, gctx Context, tokens map[string]string) Outcome {
	if !d.Applies(gctx.LightMode) {
		e.logger.Debug("skipping template for other mode", "template", d.Name, "variant", d.Variant())
		return Outcome{Status: StatusSkipped}
	}

	templatePath := d.ResolveTemplatePath(gctx.BaseDir)
	outputPath := d.ResolveOutputPath()

	data, err := e.readTemplate(d, templatePath)
	if err != nil {
		return Outcome{
			Status:     StatusFailed,
			OutputPath: outputPath,
			Err:        &TemplateError{Name: d.Name, Op: "read", Path: templatePath, Err: err},
		}
	}

	out := Substitute(string(data), tokens)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return Outcome{
			Status:     StatusFailed,
			OutputPath: outputPath,
			Err:        &TemplateError{Name: d.Name, Op: "create directory for", Path: outputPath, Err: err},
		}
	}
	if err := os.WriteFile(outputPath, []byte(out), e.fileMode); err != nil {
		return Outcome{
			Status:     StatusFailed,
			OutputPath: outputPath,
			Err:        &TemplateError{Name: d.Name, Op: "write", Path: outputPath, Err: err},
		}
	}

	return Outcome{Status: StatusWritten, OutputPath: outputPath, Bytes: len(out)}
}

func (e *Engine) readTemplate(d Descriptor, resolved string) ([]byte, error) {
	data, err := os.ReadFile(resolved) // #nosec G304 - template path from user config
	if err == nil || e.fallback == nil || !errors.Is(err, os.ErrNotExist) {
		return data, err
	}

	rel, ok := strings.CutPrefix(d.TemplatePath, "./")
	if !ok {
		return nil, err
	}
	embedded, ferr := fs.ReadFile(e.fallback, path.Clean(rel))
	if ferr != nil {
		return nil, err
	}
	e.logger.Debug("using bundled template", "template", d.Name, "path", rel)
	return embedded, nil
}
