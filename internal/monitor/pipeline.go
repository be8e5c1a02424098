package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/wallhue/internal/scheme"
	"github.com/jmylchreest/wallhue/internal/template"
)

// DefaultTimeout bounds one regeneration cycle.
const DefaultTimeout = 2 * time.Minute

// Extractor derives a colour scheme from an image.
type Extractor interface {
	Extract(ctx context.Context, path string) (*scheme.Scheme, error)
}

// Generator renders templates for a scheme.
type Generator interface {
	Generate(gctx template.Context, descriptors []template.Descriptor) template.Results
}

// Applier applies a scheme to the running desktop.
type Applier interface {
	Apply(ctx context.Context, s *scheme.Scheme, lightMode bool) error
}

// PipelineOptions configures a Pipeline.
type PipelineOptions struct {
	Descriptors []template.Descriptor
	LightMode   bool
	BaseDir     string
	// Timeout bounds a cycle. Zero disables the limit.
	Timeout time.Duration
}

// Report summarises one regeneration cycle.
type Report struct {
	ID          ulid.ULID
	Path        string
	Scheme      *scheme.Scheme
	Results     template.Results
	ExtractErr  error
	GenerateErr error
	ApplyErr    error
	Duration    time.Duration
}

// Err combines the cycle's failures, including failed templates.
func (r *Report) Err() error {
	errs := []error{r.ExtractErr, r.GenerateErr, r.ApplyErr}
	for _, o := range r.Results {
		if o.Status == template.StatusFailed {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}

// Pipeline runs extract, generate and apply for one wallpaper.
type Pipeline struct {
	extractor Extractor
	generator Generator
	applier   Applier
	opts      PipelineOptions
	logger    *slog.Logger
}

// NewPipeline creates a pipeline. A nil applier skips the apply step.
func NewPipeline(extractor Extractor, generator Generator, applier Applier, opts PipelineOptions, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: extractor,
		generator: generator,
		applier:   applier,
		opts:      opts,
		logger:    logger,
	}
}

// Regenerate runs one cycle. Failures are logged and recorded in the report;
// an extraction failure ends the cycle before anything is written.
func (p *Pipeline) Regenerate(ctx context.Context, path string) *Report {
	start := time.Now()
	report := &Report{ID: ulid.Make(), Path: path}
	log := p.logger.With("cycle", report.ID.String())
	defer func() {
		report.Duration = time.Since(start)
		log.Debug("regeneration finished", "duration", report.Duration)
	}()

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	log.Info("regenerating theme", "path", path, "light_mode", p.opts.LightMode)

	err := guard("extract", func() error {
		s, err := p.extractor.Extract(ctx, path)
		if err == nil && s == nil {
			err = errors.New("extractor returned no scheme")
		}
		report.Scheme = s
		return err
	})
	if err != nil {
		report.ExtractErr = err
		log.Error("colour extraction failed, keeping current theme", "path", path, "error", err)
		return report
	}
	log.Debug("extracted colour scheme", "roles", report.Scheme.Len())

	report.GenerateErr = guard("generate", func() error {
		report.Results = p.generator.Generate(template.Context{
			Scheme:        report.Scheme,
			WallpaperPath: path,
			LightMode:     p.opts.LightMode,
			BaseDir:       p.opts.BaseDir,
		}, p.opts.Descriptors)
		return nil
	})
	if report.GenerateErr != nil {
		log.Error("template generation failed", "error", report.GenerateErr)
	}
	p.logResults(log, report.Results)

	if p.applier == nil {
		return report
	}
	report.ApplyErr = guard("apply", func() error {
		return p.applier.Apply(ctx, report.Scheme, p.opts.LightMode)
	})
	if report.ApplyErr != nil {
		log.Error("failed to apply theme", "error", report.ApplyErr)
	} else {
		log.Info("theme applied")
	}
	return report
}

func (p *Pipeline) logResults(log *slog.Logger, results template.Results) {
	for _, d := range p.opts.Descriptors {
		o, ok := results[d.Name]
		if !ok {
			continue
		}
		switch o.Status {
		case template.StatusWritten:
			log.Info("wrote template", "template", d.Name, "path", o.OutputPath, "size", humanize.Bytes(uint64(o.Bytes)))
		case template.StatusFailed:
			log.Error("template failed", "template", d.Name, "path", o.OutputPath, "error", o.Err)
		case template.StatusSkipped:
			log.Debug("template skipped", "template", d.Name, "variant", d.Variant())
		}
	}
}

// guard runs fn and turns a panic into an error.
func guard(step string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", step, r)
		}
	}()
	return fn()
}
