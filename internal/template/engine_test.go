package template

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/wallhue/internal/scheme"
)

func testScheme(t *testing.T, pairs ...string) *scheme.Scheme {
	t.Helper()
	s, err := scheme.FromHex(pairs...)
	require.NoError(t, err)
	return s
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSubstitute_AllForms(t *testing.T) {
	s := testScheme(t, "primary", "#AABBCC")
	tokens := Tokens(s, "/w.png")

	got := Substitute("@{primary} @{primary.hex} @{primary.rgb}", tokens)
	assert.Equal(t, "AABBCC #AABBCC rgb(170,187,204)", got)

	got = Substitute("hsl(@{primary.hue}, @{primary.sat}%, @{primary.light}%) @{wallpaper}", tokens)
	assert.Equal(t, "hsl(210, 25%, 73.33%) /w.png", got)
}

func TestSubstitute_GlobalAndUnknown(t *testing.T) {
	tokens := Tokens(testScheme(t, "primary", "#112233"), "")

	got := Substitute("@{primary}-@{primary}-@{missing}-@{primary.nope}-@{}", tokens)
	assert.Equal(t, "112233-112233-@{missing}-@{primary.nope}-@{}", got)
}

func TestSubstitute_ReplacementsNotRescanned(t *testing.T) {
	// A wallpaper path that itself looks like a token must not be expanded.
	tokens := Tokens(testScheme(t, "primary", "#112233"), "/tmp/@{primary}.png")

	got := Substitute("@{wallpaper}", tokens)
	assert.Equal(t, "/tmp/@{primary}.png", got)
}

func TestSubstitute_PrefixRolesAreDisjoint(t *testing.T) {
	tokens := Tokens(testScheme(t, "on", "#000000", "onPrimary", "#ffffff"), "")

	got := Substitute("@{on} @{onPrimary} @{on.hex} @{onPrimary.hex}", tokens)
	assert.Equal(t, "000000 ffffff #000000 #ffffff", got)
}

func TestTokens_WallpaperIsAbsolute(t *testing.T) {
	tokens := Tokens(testScheme(t, "primary", "#112233"), "walls/a.png")

	abs, err := filepath.Abs("walls/a.png")
	require.NoError(t, err)
	assert.Equal(t, abs, tokens[WallpaperToken])
}

func TestDescriptor_Applies(t *testing.T) {
	dark := Descriptor{Name: "ThemeDark"}
	light := Descriptor{Name: "ThemeLight"}

	assert.True(t, dark.IsDark())
	assert.True(t, Descriptor{Name: "shelldark"}.IsDark())
	assert.False(t, light.IsDark())
	assert.False(t, Descriptor{Name: "darkshell"}.IsDark())

	assert.False(t, dark.Applies(true))
	assert.True(t, dark.Applies(false))
	assert.True(t, light.Applies(true))
	assert.False(t, light.Applies(false))
}

func TestDescriptor_ResolveTemplatePath(t *testing.T) {
	d := Descriptor{TemplatePath: "./templates/gtk.css"}
	assert.Equal(t, "/etc/wallhue/templates/gtk.css", d.ResolveTemplatePath("/etc/wallhue"))

	d = Descriptor{TemplatePath: "/abs/gtk.css"}
	assert.Equal(t, "/abs/gtk.css", d.ResolveTemplatePath("/etc/wallhue"))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	d = Descriptor{TemplatePath: "~/gtk.css", OutputPath: "~/out/gtk.css"}
	assert.Equal(t, filepath.Join(home, "gtk.css"), d.ResolveTemplatePath(""))
	assert.Equal(t, filepath.Join(home, "out", "gtk.css"), d.ResolveOutputPath())
}

func TestEngine_Generate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "templates", "light.tmpl"), "fg=@{primary.hex} wall=@{wallpaper}\n")
	writeFile(t, filepath.Join(dir, "templates", "dark.tmpl"), "dark=@{primary}\n")

	descriptors := []Descriptor{
		{Name: "ThemeLight", TemplatePath: "./templates/light.tmpl", OutputPath: filepath.Join(dir, "out", "nested", "light.conf")},
		{Name: "ThemeDark", TemplatePath: "./templates/dark.tmpl", OutputPath: filepath.Join(dir, "out", "dark.conf")},
	}

	engine := NewEngine(nil)
	results := engine.Generate(Context{
		Scheme:        testScheme(t, "primary", "#AABBCC"),
		WallpaperPath: "/w.png",
		LightMode:     true,
		BaseDir:       dir,
	}, descriptors)

	require.Len(t, results, 2)
	assert.Equal(t, StatusWritten, results["ThemeLight"].Status)
	assert.Equal(t, StatusSkipped, results["ThemeDark"].Status)
	assert.Equal(t, 1, results.Count(StatusWritten))

	out := filepath.Join(dir, "out", "nested", "light.conf")
	assert.Equal(t, "fg=#AABBCC wall=/w.png\n", readFile(t, out))
	assert.Equal(t, len("fg=#AABBCC wall=/w.png\n"), results["ThemeLight"].Bytes)
	assert.NoFileExists(t, filepath.Join(dir, "out", "dark.conf"))

	results = engine.Generate(Context{
		Scheme:    testScheme(t, "primary", "#AABBCC"),
		LightMode: false,
		BaseDir:   dir,
	}, descriptors)
	assert.Equal(t, StatusSkipped, results["ThemeLight"].Status)
	assert.Equal(t, StatusWritten, results["ThemeDark"].Status)
	assert.Equal(t, "dark=AABBCC\n", readFile(t, filepath.Join(dir, "out", "dark.conf")))
}

func TestEngine_Overwrites(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.tmpl"), "@{primary}")
	out := filepath.Join(dir, "a.out")
	writeFile(t, out, "old content that is longer than the new one")

	results := NewEngine(nil).Generate(Context{
		Scheme:    testScheme(t, "primary", "#010203"),
		LightMode: true,
	}, []Descriptor{{Name: "a", TemplatePath: filepath.Join(dir, "a.tmpl"), OutputPath: out}})

	assert.Equal(t, StatusWritten, results["a"].Status)
	assert.Equal(t, "010203", readFile(t, out))
}

func TestEngine_FailureIsolation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.tmpl"), "@{primary}")

	blocker := filepath.Join(dir, "blocker")
	writeFile(t, blocker, "a file where a directory is needed")

	descriptors := []Descriptor{
		{Name: "A", TemplatePath: filepath.Join(dir, "missing.tmpl"), OutputPath: filepath.Join(dir, "a.out")},
		{Name: "C", TemplatePath: filepath.Join(dir, "b.tmpl"), OutputPath: filepath.Join(blocker, "c.out")},
		{Name: "B", TemplatePath: filepath.Join(dir, "b.tmpl"), OutputPath: filepath.Join(dir, "b.out")},
	}

	results := NewEngine(nil).Generate(Context{
		Scheme:    testScheme(t, "primary", "#AABBCC"),
		LightMode: true,
	}, descriptors)

	assert.Equal(t, StatusFailed, results["A"].Status)
	var tmplErr *TemplateError
	require.ErrorAs(t, results["A"].Err, &tmplErr)
	assert.Equal(t, "read", tmplErr.Op)
	assert.ErrorIs(t, results["A"].Err, os.ErrNotExist)

	assert.Equal(t, StatusFailed, results["C"].Status)
	assert.Error(t, results["C"].Err)

	assert.Equal(t, StatusWritten, results["B"].Status)
	assert.Equal(t, "AABBCC", readFile(t, filepath.Join(dir, "b.out")))
	assert.Equal(t, 2, results.Count(StatusFailed))
}

func TestEngine_NilScheme(t *testing.T) {
	results := NewEngine(nil).Generate(Context{}, []Descriptor{{Name: "a"}})
	assert.Equal(t, StatusFailed, results["a"].Status)
}

func TestDumpTemplates(t *testing.T) {
	dir := t.TempDir()

	written, err := DumpTemplates(dir, false)
	require.NoError(t, err)
	names, err := ListEmbeddedTemplates()
	require.NoError(t, err)
	assert.Len(t, written, len(names))

	// Second dump without force reports the existing files.
	_, err = DumpTemplates(dir, false)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "already exists"))

	written, err = DumpTemplates(dir, true)
	require.NoError(t, err)
	assert.Len(t, written, len(names))
}

func TestDefaultDescriptors_RenderWithExtractorRoles(t *testing.T) {
	dir := t.TempDir()
	_, err := DumpTemplates(dir, false)
	require.NoError(t, err)

	var pairs []string
	for _, role := range []string{
		"primary", "onPrimary", "primaryContainer", "onPrimaryContainer",
		"secondaryContainer", "onSecondaryContainer", "error", "onError",
		"background", "onBackground", "surface", "onSurface",
		"surfaceVariant", "onSurfaceVariant", "outline",
	} {
		pairs = append(pairs, role, "#336699")
	}

	descriptors := DefaultDescriptors("Test", filepath.Join(dir, "themes"))
	for _, light := range []bool{true, false} {
		results := NewEngine(nil).Generate(Context{
			Scheme:        testScheme(t, pairs...),
			WallpaperPath: "/w.png",
			LightMode:     light,
			BaseDir:       dir,
		}, descriptors)
		assert.Equal(t, 2, results.Count(StatusWritten))
		assert.Equal(t, 2, results.Count(StatusSkipped))

		for _, d := range descriptors {
			if results[d.Name].Status != StatusWritten {
				continue
			}
			assert.NotContains(t, readFile(t, d.OutputPath), "@{", d.Name)
		}
	}
}

func TestEngine_FallbackToBundledTemplates(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out", "gtk.css")
	descriptors := []Descriptor{
		{Name: "gtk", TemplatePath: "./templates/gtk.css", OutputPath: out},
		{Name: "missing", TemplatePath: "./templates/nope.css", OutputPath: filepath.Join(dir, "nope")},
	}
	gctx := Context{Scheme: testScheme(t, "primary", "#AABBCC"), LightMode: true, BaseDir: dir}

	results := NewEngine(nil).Generate(gctx, descriptors)
	assert.Equal(t, StatusFailed, results["gtk"].Status)

	results = NewEngine(nil).WithFallback(EmbeddedTemplates).Generate(gctx, descriptors)
	assert.Equal(t, StatusWritten, results["gtk"].Status)
	assert.Contains(t, readFile(t, out), "#AABBCC")
	assert.Equal(t, StatusFailed, results["missing"].Status)
	assert.ErrorIs(t, results["missing"].Err, os.ErrNotExist)

	// A template on disk wins over the bundled one.
	writeFile(t, filepath.Join(dir, "templates", "gtk.css"), "custom @{primary}")
	results = NewEngine(nil).WithFallback(EmbeddedTemplates).Generate(gctx, descriptors)
	assert.Equal(t, StatusWritten, results["gtk"].Status)
	assert.Equal(t, "custom AABBCC", readFile(t, out))
}
