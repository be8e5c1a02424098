// Package scheme defines the colour scheme produced by extraction and
// consumed by template generation and theme application.
package scheme

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ReservedRole is the token name used for the wallpaper path. No role may use it.
const ReservedRole = "wallpaper"

// Color is a single scheme colour. It keeps the hex spelling it was parsed
// from so templates receive exactly what the producer emitted.
type Color struct {
	hex string
	c   colorful.Color
}

// ParseColor parses a "#rrggbb", "rrggbb" or "#rgb" colour.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Color{}, errors.New("empty colour value")
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return Color{hex: s, c: c}, nil
}

// FromColorful converts a go-colorful colour, clamped to the RGB gamut.
func FromColorful(c colorful.Color) Color {
	c = c.Clamped()
	return Color{hex: c.Hex(), c: c}
}

// Hex returns the colour with a leading '#'.
func (c Color) Hex() string {
	return c.hex
}

// Stripped returns the hex colour without the leading '#'.
func (c Color) Stripped() string {
	return strings.TrimPrefix(c.hex, "#")
}

// RGB renders the colour as "rgb(r,g,b)".
func (c Color) RGB() string {
	r, g, b := c.c.RGB255()
	return fmt.Sprintf("rgb(%d,%d,%d)", r, g, b)
}

// HSL returns hue in degrees (0-360) and saturation and lightness in
// percent (0-100).
func (c Color) HSL() (h, s, l float64) {
	h, s, l = c.c.Hsl()
	return h, s * 100, l * 100
}

// Colorful exposes the underlying go-colorful value.
func (c Color) Colorful() colorful.Color {
	return c.c
}

// String implements fmt.Stringer.
func (c Color) String() string {
	return c.hex
}

// FormatDecimal renders v rounded to two decimals without trailing zeros.
func FormatDecimal(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		r = 0 // normalise -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// Entry is one role of a scheme.
type Entry struct {
	Role  string
	Color Color
}

// Scheme is an ordered, immutable mapping from role name to colour.
type Scheme struct {
	roles  []string
	colors map[string]Color
}

// New builds a scheme from entries, preserving their order.
func New(entries []Entry) (*Scheme, error) {
	s := &Scheme{
		roles:  make([]string, 0, len(entries)),
		colors: make(map[string]Color, len(entries)),
	}
	for _, e := range entries {
		if err := ValidateRole(e.Role); err != nil {
			return nil, err
		}
		if _, dup := s.colors[e.Role]; dup {
			return nil, fmt.Errorf("duplicate role %q", e.Role)
		}
		if e.Color.hex == "" {
			return nil, fmt.Errorf("role %q has no colour", e.Role)
		}
		s.roles = append(s.roles, e.Role)
		s.colors[e.Role] = e.Color
	}
	return s, nil
}

// FromHex builds a scheme from alternating role and hex arguments,
// e.g. FromHex("primary", "#aabbcc", "surface", "#101010").
func FromHex(pairs ...string) (*Scheme, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("role/colour arguments must come in pairs")
	}
	entries := make([]Entry, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		c, err := ParseColor(pairs[i+1])
		if err != nil {
			return nil, fmt.Errorf("role %q: %w", pairs[i], err)
		}
		entries = append(entries, Entry{Role: pairs[i], Color: c})
	}
	return New(entries)
}

// ValidateRole checks that a role name cannot produce a token spelling
// shared with another role or with the wallpaper token.
func ValidateRole(role string) error {
	switch {
	case role == "":
		return errors.New("role name cannot be empty")
	case role == ReservedRole:
		return fmt.Errorf("role name %q is reserved", role)
	case strings.ContainsAny(role, ".{}@ \t\n"):
		return fmt.Errorf("role name %q contains reserved characters", role)
	}
	return nil
}

// Len returns the number of roles.
func (s *Scheme) Len() int {
	return len(s.roles)
}

// Roles returns the role names in order.
func (s *Scheme) Roles() []string {
	out := make([]string, len(s.roles))
	copy(out, s.roles)
	return out
}

// Get returns the colour for a role.
func (s *Scheme) Get(role string) (Color, bool) {
	c, ok := s.colors[role]
	return c, ok
}

// All iterates roles and colours in order.
func (s *Scheme) All() iter.Seq2[string, Color] {
	return func(yield func(string, Color) bool) {
		for _, role := range s.roles {
			if !yield(role, s.colors[role]) {
				return
			}
		}
	}
}

// HexMap returns role -> "#hex".
func (s *Scheme) HexMap() map[string]string {
	out := make(map[string]string, len(s.roles))
	for role, c := range s.All() {
		out[role] = c.Hex()
	}
	return out
}
