package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/landing/internal/config"
	"github.com/conneroisu/landing/internal/scanner"
)

func fixture() (*config.Config, map[string]string, []scanner.PageDescriptor) {
	cfg := config.Default()
	entries := map[string]string{
		"home":  filepath.Join("src", "pages", "home", "index.js"),
		"about": filepath.Join("src", "pages", "about", "index.js"),
	}
	templates := []scanner.PageDescriptor{
		{Name: "home", Path: filepath.Join("src", "pages", "home", "index.html")},
		{Name: "about", Path: filepath.Join("src", "pages", "about", "index.html")},
	}
	return cfg, entries, templates
}

func pluginNames(plugins []Plugin) []string {
	names := make([]string, 0, len(plugins))
	for _, p := range plugins {
		names = append(names, p.Name())
	}
	return names
}

func TestCompose(t *testing.T) {
	cfg, entries, templates := fixture()
	c := Compose(cfg, entries, templates)

	assert.Equal(t, ModeDevelopment, c.Mode)
	assert.Equal(t, TargetWeb, c.Target)
	assert.Equal(t, DevtoolInline, c.Devtool)
	assert.Equal(t, entries, c.Entry)
	assert.Equal(t, "dist", c.Output.Path)
	assert.Equal(t, "js/[name].[contenthash].js", c.Output.Filename)
	assert.False(t, c.Optimization.Minimize)

	assert.Equal(t, []string{
		"css-extract", "image-minimizer", "clean", "copy", "html-page", "html-page",
	}, pluginNames(c.Plugins))

	pages := c.HTMLPages()
	require.Len(t, pages, 2)
	for i, page := range pages {
		assert.Equal(t, templates[i].Name, page.Page)
		assert.Equal(t, templates[i].Name+".html", page.Filename)
		assert.Equal(t, []string{templates[i].Name}, page.Chunks)
		assert.Equal(t, filepath.Join("src", "images", "favicon.ico"), page.Favicon)
		assert.True(t, page.Inject)
		assert.False(t, page.Hash)
	}

	clean, ok := FindPlugin[*Clean](c)
	require.True(t, ok)
	assert.Equal(t, []string{"**/*", "!stats.json"}, clean.Patterns)

	cp, ok := FindPlugin[*Copy](c)
	require.True(t, ok)
	require.Len(t, cp.Patterns, 1)
	assert.Equal(t, filepath.Join("src", "images", "content"), cp.Patterns[0].From)
	assert.Equal(t, "images/content", cp.Patterns[0].To)
	assert.Equal(t, []string{"*.DS_Store", "Thumbs.db"}, cp.Patterns[0].Ignore)

	require.NoError(t, Validate(c))
}

func TestComposeDoesNotAliasEntries(t *testing.T) {
	cfg, entries, templates := fixture()
	c := Compose(cfg, entries, templates)
	c.Entry["extra"] = "x.js"
	assert.NotContains(t, entries, "extra")
}

func TestRules(t *testing.T) {
	cfg, entries, templates := fixture()
	c := Compose(cfg, entries, templates)

	tests := []struct {
		path string
		kind RuleKind
		ok   bool
	}{
		{"src/pages/home/index.html", RuleHTML, true},
		{"src/styles/main.scss", RuleStyle, true},
		{"src/styles/main.sass", RuleStyle, true},
		{"src/styles/reset.css", RuleStyle, true},
		{"src/pages/home/index.js", RuleScript, true},
		{"node_modules/lib/index.js", 0, false},
		{"src/images/logo.PNG", RuleAsset, true},
		{"src/images/photo.jpeg", RuleAsset, true},
		{"src/fonts/inter.woff2", RuleAsset, true},
		{"src/readme.md", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r, ok := c.MatchRule(tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.kind, r.Kind)
			}
		})
	}

	html, ok := c.RuleFor(RuleHTML)
	require.True(t, ok)
	assert.Equal(t, filepath.Join("src", "html"), html.IncludeRoot)

	script, ok := c.RuleFor(RuleScript)
	require.True(t, ok)
	assert.Equal(t, "es2015", script.ScriptTarget)
	assert.True(t, script.Uses("downlevel"))

	style, ok := c.RuleFor(RuleStyle)
	require.True(t, ok)
	assert.True(t, style.Uses("sass"))
	assert.True(t, style.Uses("autoprefix"))
	assert.False(t, style.Uses("downlevel"))

	assets := c.AssetRules()
	require.Len(t, assets, 2)
	for _, r := range assets {
		assert.Equal(t, int64(8192), r.InlineLimit)
		assert.Equal(t, "images/design/[name].[hash:6][ext]", r.Filename)
	}
}

func TestShouldInline(t *testing.T) {
	r := assetRule(imageTest, 100)
	assert.True(t, r.ShouldInline(0))
	assert.True(t, r.ShouldInline(99))
	assert.False(t, r.ShouldInline(100))
	assert.False(t, r.ShouldInline(101))
	assert.False(t, scriptRule().ShouldInline(0))
}

func TestProduction(t *testing.T) {
	cfg, entries, templates := fixture()
	base := Compose(cfg, entries, templates)
	baseNames := pluginNames(base.Plugins)

	prod, err := Production(base, DefaultProductionOptions())
	require.NoError(t, err)

	assert.Equal(t, ModeProduction, prod.Mode)
	assert.Equal(t, DevtoolNone, prod.Devtool)
	assert.True(t, prod.Optimization.Minimize)
	assert.Equal(t, int64(512000), prod.Performance.MaxEntrypointSize)
	assert.Equal(t, int64(512000), prod.Performance.MaxAssetSize)
	assert.Equal(t, HintsWarning, prod.Performance.Hints)
	assert.Equal(t, base.Module.Rules, prod.Module.Rules)
	assert.Equal(t, base.Entry, prod.Entry)
	assert.Equal(t, base.Output, prod.Output)

	names := pluginNames(prod.Plugins)
	assert.Equal(t, append(baseNames, "base-href"), names)
	bh, ok := FindPlugin[*BaseHref](prod)
	require.True(t, ok)
	assert.Equal(t, "/landing/", bh.Href)

	script, ok := prod.Minimizer(CategoryScript)
	require.True(t, ok)
	assert.True(t, script.(ScriptMinimizer).Parallel)
	_, ok = prod.Minimizer(CategoryStyle)
	assert.True(t, ok)
}

func TestProductionLeavesBaseUntouched(t *testing.T) {
	cfg, entries, templates := fixture()
	base := Compose(cfg, entries, templates)
	before := base.Clone()
	beforePlugins := pluginNames(base.Plugins)

	_, err := Production(base, DefaultProductionOptions())
	require.NoError(t, err)

	assert.Equal(t, ModeDevelopment, base.Mode)
	assert.Equal(t, DevtoolInline, base.Devtool)
	assert.False(t, base.Optimization.Minimize)
	assert.Empty(t, base.Optimization.Minimizers)
	assert.Equal(t, before.Performance, base.Performance)
	assert.Equal(t, beforePlugins, pluginNames(base.Plugins))
}

func TestProductionCompression(t *testing.T) {
	cfg, entries, templates := fixture()
	opts := DefaultProductionOptions()
	opts.Compress = true

	prod, err := Production(Compose(cfg, entries, templates), opts)
	require.NoError(t, err)

	names := pluginNames(prod.Plugins)
	assert.Equal(t, []string{"base-href", "compression"}, names[len(names)-2:])
	byStage := prod.PluginsByStage()
	assert.Equal(t, "compression", byStage[len(byStage)-1].Name())
	assert.Equal(t, "clean", byStage[0].Name())
}

func TestProductionTwiceRejectsDuplicateMinimizers(t *testing.T) {
	cfg, entries, templates := fixture()
	prod, err := Production(Compose(cfg, entries, templates), DefaultProductionOptions())
	require.NoError(t, err)

	_, err = Production(prod, DefaultProductionOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DUPLICATE_MINIMIZER")
}

func TestDevelopment(t *testing.T) {
	cfg, entries, templates := fixture()
	base := Compose(cfg, entries, templates)

	dev, err := Development(base, DevelopmentOptions{LiveReloadEndpoint: "/__livereload"})
	require.NoError(t, err)
	lr, ok := FindPlugin[*LiveReload](dev)
	require.True(t, ok)
	assert.Equal(t, "/__livereload", lr.Endpoint)
	_, ok = FindPlugin[*LiveReload](base)
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Configuration)
		code   string
	}{
		{"empty output path", func(c *Configuration) { c.Output.Path = "" }, "OUTPUT_PATH"},
		{"filename without name", func(c *Configuration) { c.Output.Filename = "js/bundle.js" }, "OUTPUT_FILENAME"},
		{"unknown hints", func(c *Configuration) { c.Performance.Hints = "loud" }, "HINTS"},
		{"duplicate page filename", func(c *Configuration) {
			c.Plugins = append(c.Plugins, &HTMLPage{Page: "other", Filename: "home.html"})
		}, "DUPLICATE_PAGE"},
		{"missing extractor", func(c *Configuration) {
			c.Plugins = c.Plugins[1:]
		}, "STYLE_EXTRACT"},
		{"rewrite before page", func(c *Configuration) {
			c.Plugins = append([]Plugin{&BaseHref{Href: "/"}}, c.Plugins...)
		}, "PLUGIN_ORDER"},
		{"two script minimizers", func(c *Configuration) {
			c.Optimization.Minimizers = []Minimizer{ScriptMinimizer{}, ScriptMinimizer{Parallel: true}}
		}, "DUPLICATE_MINIMIZER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, entries, templates := fixture()
			c := Compose(cfg, entries, templates)
			tt.mutate(c)
			err := Validate(c)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.code)
		})
	}
}

func TestProductionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(42)
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("production keeps base plugins first and one minimizer per category", prop.ForAll(
		func(names []string) bool {
			cfg := config.Default()
			entries := make(map[string]string)
			var templates []scanner.PageDescriptor
			for _, n := range names {
				if _, ok := entries[n]; ok {
					continue
				}
				entries[n] = filepath.Join("src", "pages", n, "index.js")
				templates = append(templates, scanner.PageDescriptor{
					Name: n, Path: filepath.Join("src", "pages", n, "index.html"),
				})
			}

			base := Compose(cfg, entries, templates)
			prod, err := Production(base, DefaultProductionOptions())
			if err != nil {
				return false
			}
			if len(prod.Plugins) != len(base.Plugins)+1 {
				return false
			}
			for i := range base.Plugins {
				if prod.Plugins[i] != base.Plugins[i] {
					return false
				}
			}
			if _, ok := prod.Plugins[len(prod.Plugins)-1].(*BaseHref); !ok {
				return false
			}
			counts := make(map[AssetCategory]int)
			for _, m := range prod.Optimization.Minimizers {
				counts[m.Category()]++
			}
			return counts[CategoryScript] == 1 && counts[CategoryStyle] == 1 && len(counts) == 2
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}
