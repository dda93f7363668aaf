package pipeline

import (
	"fmt"
	"regexp"
)

// Stage orders plugin execution. Plugins run stage by stage; within a
// stage they run in list order.
type Stage int

const (
	// StagePreBuild runs before anything is bundled.
	StagePreBuild Stage = iota
	// StageExtract runs while bundles are produced.
	StageExtract
	// StageEmit adds files that are not produced by the bundler.
	StageEmit
	// StageOptimize rewrites emitted assets in place.
	StageOptimize
	// StageHTML emits the pages.
	StageHTML
	// StageHTMLRewrite post-processes emitted pages.
	StageHTMLRewrite
	// StageFinalize runs after every other asset is final.
	StageFinalize
)

func (s Stage) String() string {
	switch s {
	case StagePreBuild:
		return "pre-build"
	case StageExtract:
		return "extract"
	case StageEmit:
		return "emit"
	case StageOptimize:
		return "optimize"
	case StageHTML:
		return "html"
	case StageHTMLRewrite:
		return "html-rewrite"
	case StageFinalize:
		return "finalize"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Plugin is a typed build stage descriptor.
type Plugin interface {
	Name() string
	Stage() Stage
}

// AssetCategory groups outputs for minimization.
type AssetCategory string

const (
	CategoryScript AssetCategory = "script"
	CategoryStyle  AssetCategory = "style"
)

// Minimizer is a minimization stage for one asset category.
type Minimizer interface {
	Name() string
	Category() AssetCategory
}

// CSSExtract writes the style sheets of each entry to their own file.
type CSSExtract struct {
	Filename string
}

func (*CSSExtract) Name() string { return "css-extract" }
func (*CSSExtract) Stage() Stage { return StageExtract }

// GifsicleOptions configures GIF recompression.
type GifsicleOptions struct {
	Enabled    bool
	Interlaced bool
}

// JpegtranOptions configures JPEG recompression.
type JpegtranOptions struct {
	Enabled     bool
	Progressive bool
}

// OptipngOptions configures PNG recompression.
type OptipngOptions struct {
	Enabled           bool
	OptimizationLevel int
}

// SvgoOptions configures SVG minification.
type SvgoOptions struct {
	Enabled       bool
	RemoveViewBox bool
}

// ImageMinimizer recompresses emitted images losslessly.
type ImageMinimizer struct {
	Test *regexp.Regexp
	GIF  GifsicleOptions
	JPEG JpegtranOptions
	PNG  OptipngOptions
	SVG  SvgoOptions
}

func (*ImageMinimizer) Name() string { return "image-minimizer" }
func (*ImageMinimizer) Stage() Stage { return StageOptimize }

// Clean empties the output directory before the build. Patterns are
// doublestar globs relative to the output path; a leading "!" keeps matches.
type Clean struct {
	Verbose  bool
	Patterns []string
}

func (*Clean) Name() string { return "clean" }
func (*Clean) Stage() Stage { return StagePreBuild }

// CopyPattern copies a directory tree verbatim.
type CopyPattern struct {
	From string
	To   string
	// Ignore holds doublestar globs matched against the file's base name
	// and its path relative to From.
	Ignore           []string
	NoErrorOnMissing bool
}

// Copy emits static files that bypass the bundler.
type Copy struct {
	Patterns []CopyPattern
}

func (*Copy) Name() string { return "copy" }
func (*Copy) Stage() Stage { return StageEmit }

// HTMLPage emits one HTML file bound to the chunks it names.
type HTMLPage struct {
	Page     string
	Template string
	Filename string
	Chunks   []string
	Favicon  string
	Inject   bool
	// Hash appends the build fingerprint as a query string to injected URLs.
	Hash bool
}

func (*HTMLPage) Name() string { return "html-page" }
func (*HTMLPage) Stage() Stage { return StageHTML }

// BaseHref sets the <base href> of every emitted page.
type BaseHref struct {
	Href string
}

func (*BaseHref) Name() string { return "base-href" }
func (*BaseHref) Stage() Stage { return StageHTMLRewrite }

// LiveReload injects the development reload client into every page.
type LiveReload struct {
	Endpoint string
}

func (*LiveReload) Name() string { return "live-reload" }
func (*LiveReload) Stage() Stage { return StageHTMLRewrite }

// Compression writes gzip siblings for matching assets of at least MinSize bytes.
type Compression struct {
	Test    *regexp.Regexp
	MinSize int64
}

func (*Compression) Name() string { return "compression" }
func (*Compression) Stage() Stage { return StageFinalize }

// ScriptMinimizer minifies script bundles. Parallel lets independent
// bundles be minified concurrently.
type ScriptMinimizer struct {
	Parallel bool
}

func (ScriptMinimizer) Name() string            { return "script-minimizer" }
func (ScriptMinimizer) Category() AssetCategory { return CategoryScript }

// StyleMinimizer minifies extracted style sheets.
type StyleMinimizer struct{}

func (StyleMinimizer) Name() string            { return "style-minimizer" }
func (StyleMinimizer) Category() AssetCategory { return CategoryStyle }
