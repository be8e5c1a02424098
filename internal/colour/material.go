package colour

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/jmylchreest/wallhue/internal/scheme"
)

// DefaultSeed is used when an image has no usable chromatic colour.
const DefaultSeed = "#4285f4"

// minSeedChroma is the HCL chroma below which a cluster is considered grey.
const minSeedChroma = 0.05

// tonalPalette produces colours of one hue and chroma at varying tone.
// Tone follows CIE L* (0 black, 100 white); chroma is expressed in the
// same units (roughly 0-120).
type tonalPalette struct {
	hue    float64
	chroma float64
}

func (p tonalPalette) tone(t float64) colorful.Color {
	return colorful.Hcl(p.hue, p.chroma/100, t/100).Clamped()
}

type paletteKind int

const (
	kindPrimary paletteKind = iota
	kindSecondary
	kindTertiary
	kindError
	kindNeutral
	kindNeutralVariant
)

// roleTone assigns a role to a palette and a tone for each mode.
type roleTone struct {
	role  string
	kind  paletteKind
	light float64
	dark  float64
}

// roleTones is the ordered list of scheme roles produced by the extractor.
var roleTones = []roleTone{
	{"primary", kindPrimary, 40, 80},
	{"onPrimary", kindPrimary, 100, 20},
	{"primaryContainer", kindPrimary, 90, 30},
	{"onPrimaryContainer", kindPrimary, 10, 90},
	{"secondary", kindSecondary, 40, 80},
	{"onSecondary", kindSecondary, 100, 20},
	{"secondaryContainer", kindSecondary, 90, 30},
	{"onSecondaryContainer", kindSecondary, 10, 90},
	{"tertiary", kindTertiary, 40, 80},
	{"onTertiary", kindTertiary, 100, 20},
	{"tertiaryContainer", kindTertiary, 90, 30},
	{"onTertiaryContainer", kindTertiary, 10, 90},
	{"error", kindError, 40, 80},
	{"onError", kindError, 100, 20},
	{"errorContainer", kindError, 90, 30},
	{"onErrorContainer", kindError, 10, 90},
	{"background", kindNeutral, 99, 10},
	{"onBackground", kindNeutral, 10, 90},
	{"surface", kindNeutral, 99, 10},
	{"onSurface", kindNeutral, 10, 90},
	{"surfaceVariant", kindNeutralVariant, 90, 30},
	{"onSurfaceVariant", kindNeutralVariant, 30, 80},
	{"outline", kindNeutralVariant, 50, 60},
	{"shadow", kindNeutral, 0, 0},
	{"inverseSurface", kindNeutral, 20, 90},
	{"inverseOnSurface", kindNeutral, 95, 20},
	{"inversePrimary", kindPrimary, 80, 40},
}

// RoleNames returns the roles emitted by BuildScheme, in order.
func RoleNames() []string {
	names := make([]string, len(roleTones))
	for i, rt := range roleTones {
		names[i] = rt.role
	}
	return names
}

// pickSeed chooses the cluster with the best weight * chroma score.
// It falls back to DefaultSeed for greyscale images.
func pickSeed(clusters []cluster) colorful.Color {
	best := -1.0
	var seed colorful.Color
	for _, c := range clusters {
		col := colorful.Color{R: c.r / 255, G: c.g / 255, B: c.b / 255}
		_, chroma, _ := col.Hcl()
		if chroma < minSeedChroma {
			continue
		}
		// Square root damps the dominance of large flat regions.
		score := math.Sqrt(c.weight) * chroma
		if score > best {
			best = score
			seed = col
		}
	}
	if best < 0 {
		seed, _ = colorful.Hex(DefaultSeed)
	}
	return seed
}

// BuildScheme derives a tonal scheme for light or dark mode from a seed colour.
func BuildScheme(seed colorful.Color, light bool) (*scheme.Scheme, error) {
	h, c, _ := seed.Hcl()
	chroma := c * 100

	palettes := map[paletteKind]tonalPalette{
		kindPrimary:        {hue: h, chroma: math.Max(chroma, 48)},
		kindSecondary:      {hue: h, chroma: 16},
		kindTertiary:       {hue: math.Mod(h+60, 360), chroma: 24},
		kindError:          {hue: 25, chroma: 84},
		kindNeutral:        {hue: h, chroma: 4},
		kindNeutralVariant: {hue: h, chroma: 8},
	}

	entries := make([]scheme.Entry, 0, len(roleTones))
	for _, rt := range roleTones {
		tone := rt.dark
		if light {
			tone = rt.light
		}
		entries = append(entries, scheme.Entry{
			Role:  rt.role,
			Color: scheme.FromColorful(palettes[rt.kind].tone(tone)),
		})
	}
	return scheme.New(entries)
}
