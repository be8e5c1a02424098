package template

import (
	"path/filepath"
	"regexp"

	"github.com/jmylchreest/wallhue/internal/scheme"
)

// WallpaperToken is the token name replaced with the wallpaper path.
const WallpaperToken = scheme.ReservedRole

// tokenPattern matches "@{name}" and "@{name.field}".
var tokenPattern = regexp.MustCompile(`@\{([^{}\s]+)\}`)

// Tokens builds the replacement table for one generation cycle.
// Keys are token names without the "@{" "}" delimiters.
func Tokens(s *scheme.Scheme, wallpaper string) map[string]string {
	tokens := make(map[string]string, s.Len()*7+1)
	for role, c := range s.All() {
		h, sat, light := c.HSL()
		tokens[role] = c.Stripped()
		tokens[role+".hex"] = c.Hex()
		tokens[role+".rgb"] = c.RGB()
		tokens[role+".hue"] = scheme.FormatDecimal(h)
		tokens[role+".sat"] = scheme.FormatDecimal(sat)
		tokens[role+".light"] = scheme.FormatDecimal(light)
	}
	tokens[WallpaperToken] = absWallpaper(wallpaper)
	return tokens
}

// Substitute replaces every known token in text in a single scan.
// Replacement values are never rescanned and unknown tokens are kept verbatim.
func Substitute(text string, tokens map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(text, func(match string) string {
		if v, ok := tokens[match[2:len(match)-1]]; ok {
			return v
		}
		return match
	})
}

func absWallpaper(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
