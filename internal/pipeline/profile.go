package pipeline

import (
	"regexp"

	"dario.cat/mergo"

	"github.com/conneroisu/landing/internal/config"
	lerrors "github.com/conneroisu/landing/internal/errors"
)

// ProductionOptions are the production-only settings layered on a base
// configuration.
type ProductionOptions struct {
	BaseHref          string
	MaxEntrypointSize int64
	MaxAssetSize      int64
	Hints             Hints
	// Compress adds a gzip sibling writer after every other stage.
	Compress bool
}

// ProductionOptionsFrom reads the production settings from cfg.
func ProductionOptionsFrom(cfg *config.Config) ProductionOptions {
	return ProductionOptions{
		BaseHref:          cfg.Site.BaseHref,
		MaxEntrypointSize: cfg.Performance.MaxEntrypointSize,
		MaxAssetSize:      cfg.Performance.MaxAssetSize,
		Hints:             Hints(cfg.Performance.Hints),
		Compress:          cfg.Build.Compress,
	}
}

// DefaultProductionOptions mirrors the default configuration.
func DefaultProductionOptions() ProductionOptions {
	return ProductionOptionsFrom(config.Default())
}

var compressible = regexp.MustCompile(`\.(js|css|html|svg)$`)

// CompressionMinSize is the smallest asset that gets a gzip sibling.
const CompressionMinSize = 1024

// Production returns base layered with the production profile. Scalars in
// the profile override the base, while plugin and minimizer lists are
// appended after the base entries. base is left untouched.
func Production(base *Configuration, opts ProductionOptions) (*Configuration, error) {
	overlay := &Configuration{
		Mode:    ModeProduction,
		Devtool: DevtoolNone,
		Optimization: Optimization{
			Minimize: true,
			Minimizers: []Minimizer{
				ScriptMinimizer{Parallel: true},
				StyleMinimizer{},
			},
		},
		Performance: Performance{
			MaxEntrypointSize: opts.MaxEntrypointSize,
			MaxAssetSize:      opts.MaxAssetSize,
			Hints:             opts.Hints,
		},
		Plugins: []Plugin{&BaseHref{Href: opts.BaseHref}},
	}
	if opts.Compress {
		overlay.Plugins = append(overlay.Plugins, &Compression{
			Test:    compressible,
			MinSize: CompressionMinSize,
		})
	}
	return merge(base, overlay)
}

// DevelopmentOptions configure the serve profile.
type DevelopmentOptions struct {
	// LiveReloadEndpoint is the websocket path pages connect to.
	LiveReloadEndpoint string
}

// Development returns base layered with the development server profile.
func Development(base *Configuration, opts DevelopmentOptions) (*Configuration, error) {
	overlay := &Configuration{
		Mode:    ModeDevelopment,
		Devtool: DevtoolInline,
	}
	if opts.LiveReloadEndpoint != "" {
		overlay.Plugins = []Plugin{&LiveReload{Endpoint: opts.LiveReloadEndpoint}}
	}
	return merge(base, overlay)
}

func merge(base, overlay *Configuration) (*Configuration, error) {
	merged := base.Clone()
	if err := mergo.Merge(merged, overlay, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
		return nil, lerrors.NewConfigError("PROFILE_MERGE", "failed to merge profile", err)
	}
	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}
