package pipeline

import (
	"maps"
	"path"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/conneroisu/landing/internal/config"
	"github.com/conneroisu/landing/internal/scanner"
)

const (
	// ScriptFilename is the bundle name template.
	ScriptFilename = "js/[name].[contenthash].js"
	// StyleFilename is the extracted style sheet name template.
	StyleFilename = "css/[name].css"
	// StatsFile survives every clean.
	StatsFile = "stats.json"
)

// Compose builds the base configuration from the resolved pages. It is a
// pure function of its inputs: the entry map is copied, and HTML directives
// follow the order of templates.
func Compose(cfg *config.Config, entries map[string]string, templates []scanner.PageDescriptor) *Configuration {
	source := cfg.Paths.Source
	favicon := filepath.Join(source, filepath.FromSlash(cfg.Site.Favicon))

	c := &Configuration{
		Mode:    ModeDevelopment,
		Target:  TargetWeb,
		Devtool: DevtoolInline,
		Context: source,
		Entry:   maps.Clone(entries),
		Output: Output{
			Path:     cfg.Paths.Output,
			Filename: ScriptFilename,
		},
		Module: Module{
			Rules: []Rule{
				htmlRule(filepath.Join(source, filepath.FromSlash(cfg.Site.IncludeRoot))),
				styleRule(),
				scriptRule(),
				assetRule(imageTest, cfg.Limits.Images),
				assetRule(fontTest, cfg.Limits.Images),
			},
		},
		Performance: Performance{Hints: HintsOff},
	}
	if c.Entry == nil {
		c.Entry = map[string]string{}
	}

	c.Plugins = append(c.Plugins,
		&CSSExtract{Filename: StyleFilename},
		imageMinimizer(cfg.Images),
		&Clean{
			Verbose:  true,
			Patterns: []string{"**/*", "!" + StatsFile},
		},
		&Copy{
			Patterns: []CopyPattern{{
				From:   filepath.Join(source, filepath.FromSlash(cfg.Site.ContentDir)),
				To:     path.Clean(filepath.ToSlash(cfg.Site.ContentDir)),
				Ignore: []string{"*.DS_Store", "Thumbs.db"},
			}},
		},
	)

	for _, tmpl := range templates {
		c.Plugins = append(c.Plugins, &HTMLPage{
			Page:     tmpl.Name,
			Template: tmpl.Path,
			Filename: tmpl.Name + ".html",
			Chunks:   []string{tmpl.Name},
			Favicon:  favicon,
			Inject:   true,
			Hash:     false,
		})
	}
	return c
}

// ComposePages is Compose over a full scan result.
func ComposePages(cfg *config.Config, pages *scanner.Pages) *Configuration {
	return Compose(cfg, pages.Entries, pages.Templates)
}

var imageMinimizerTest = regexp.MustCompile(`(?i)\.(gif|jpe?g|png|svg)$`)

func imageMinimizer(images config.ImagesConfig) *ImageMinimizer {
	return &ImageMinimizer{
		Test: imageMinimizerTest,
		GIF:  GifsicleOptions{Enabled: images.GIF.Enabled, Interlaced: images.GIF.Interlaced},
		JPEG: JpegtranOptions{Enabled: images.JPEG.Enabled, Progressive: images.JPEG.Progressive},
		PNG:  OptipngOptions{Enabled: images.PNG.Enabled, OptimizationLevel: images.PNG.OptimizationLevel},
		SVG:  SvgoOptions{Enabled: images.SVG.Enabled, RemoveViewBox: images.SVG.RemoveViewBox},
	}
}

// EntryNames returns the entry names in sorted order.
func (c *Configuration) EntryNames() []string {
	return slices.Sorted(maps.Keys(c.Entry))
}
