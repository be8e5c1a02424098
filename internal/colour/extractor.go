// Package colour extracts a colour scheme from a wallpaper image.
package colour

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/jmylchreest/wallhue/internal/scheme"
)

// DefaultColourCount is the number of k-means clusters used by default.
const DefaultColourCount = 16

// ExtractionError reports a failure to derive a scheme from an image.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract colours from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Options configures an Extractor.
type Options struct {
	ColourCount int
	LightMode   bool
	// Seed makes clustering deterministic. Zero uses a random seed.
	Seed uint64
}

// Extractor turns an image path into a scheme for one light/dark mode.
type Extractor struct {
	loader Loader
	opts   Options
	logger *slog.Logger
}

// NewExtractor creates an extractor reading images from the filesystem.
func NewExtractor(opts Options, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ColourCount < 1 {
		opts.ColourCount = DefaultColourCount
	}
	return &Extractor{
		loader: NewFileLoader(),
		opts:   opts,
		logger: logger,
	}
}

// WithLoader replaces the image loader.
func (e *Extractor) WithLoader(loader Loader) *Extractor {
	e.loader = loader
	return e
}

// Extract loads the image at path and derives a scheme from it.
func (e *Extractor) Extract(ctx context.Context, path string) (*scheme.Scheme, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}

	img, err := e.loader.Load(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}

	points := samplePixels(img)
	if len(points) == 0 {
		return nil, &ExtractionError{Path: path, Err: fmt.Errorf("image has no opaque pixels")}
	}

	if err := ctx.Err(); err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}

	clusters := kmeans(points, e.opts.ColourCount, e.rng())
	seed := pickSeed(clusters)
	e.logger.Debug("picked seed colour", "path", path, "seed", seed.Hex(), "clusters", len(clusters))

	s, err := BuildScheme(seed, e.opts.LightMode)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	return s, nil
}

func (e *Extractor) rng() *rand.Rand {
	seed := e.opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
