// Package build executes a composed pipeline configuration.
//
// A Runner turns a pipeline.Configuration into an output tree. Every stage
// works on an in-memory AssetSet; nothing but the clean stage touches the
// output directory until all stages succeed, at which point the set is
// written out in one pass. Failures contained to a single file (a broken
// include, a budget warning) are collected as diagnostics and reported
// without failing the build.
package build

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/bep/godartsass/v2"

	lerrors "github.com/conneroisu/landing/internal/errors"
	"github.com/conneroisu/landing/internal/logging"
	"github.com/conneroisu/landing/internal/pipeline"
)

// Options configure a Runner.
type Options struct {
	Logger logging.Logger
	// SassBinary is the Dart Sass executable used for .scss and .sass files.
	// Style sheets in those syntaxes fail to build when it is empty.
	SassBinary string
	// Parallelism bounds concurrent script minification. Zero means one
	// worker per CPU.
	Parallelism int
	// Stats writes stats.json next to the output.
	Stats         bool
	HashCacheSize int
}

// Runner executes build configurations. It is reusable across rebuilds and
// keeps its fingerprint cache between them.
type Runner struct {
	logger      logging.Logger
	hashes      *HashProvider
	sass        *godartsass.Transpiler
	parallelism int
	stats       bool
	metrics     *BuildMetrics
}

// NewRunner creates a runner. Close releases the Sass compiler process.
func NewRunner(opts Options) (*Runner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	hashes, err := NewHashProvider(opts.HashCacheSize)
	if err != nil {
		return nil, lerrors.NewConfigError("HASH_CACHE", "failed to create fingerprint cache", err)
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	r := &Runner{
		logger:      logger.WithComponent("build"),
		hashes:      hashes,
		parallelism: parallelism,
		stats:       opts.Stats,
		metrics:     NewBuildMetrics(),
	}
	if opts.SassBinary != "" {
		r.sass, err = startSass(opts.SassBinary, r.logger)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Close stops the Sass compiler, if one was started.
func (r *Runner) Close() error {
	if r.sass == nil {
		return nil
	}
	return r.sass.Close()
}

// Metrics returns the accumulated build metrics.
func (r *Runner) Metrics() *BuildMetrics { return r.metrics }

// HashStats returns the fingerprint cache statistics.
func (r *Runner) HashStats() HashCacheStats { return r.hashes.Stats() }

// state is the per-run working set shared by the stages.
type state struct {
	cfg    *pipeline.Configuration
	outDir string
	assets *AssetSet
	diags  *lerrors.ErrorCollector
	// scripts and styles map entry names to their final asset names.
	scripts map[string]string
	styles  map[string]string
	logger  logging.Logger
}

// Run executes cfg and writes the output tree.
func (r *Runner) Run(ctx context.Context, cfg *pipeline.Configuration) (*Report, error) {
	start := time.Now()
	report, err := r.run(ctx, cfg)
	elapsed := time.Since(start)
	if report != nil {
		report.Duration = elapsed
	}
	r.metrics.RecordBuild(elapsed, err)
	return report, err
}

func (r *Runner) run(ctx context.Context, cfg *pipeline.Configuration) (*Report, error) {
	if err := pipeline.Validate(cfg); err != nil {
		return nil, err
	}
	outDir, err := filepath.Abs(cfg.Output.Path)
	if err != nil {
		return nil, lerrors.NewIOError("OUTPUT_PATH", cfg.Output.Path, err)
	}

	st := &state{
		cfg:     cfg,
		outDir:  outDir,
		assets:  NewAssetSet(),
		diags:   lerrors.NewErrorCollector(),
		scripts: make(map[string]string),
		styles:  make(map[string]string),
		logger:  r.logger.With("mode", string(cfg.Mode)),
	}
	plugins := cfg.PluginsByStage()

	steps := []struct {
		name string
		fn   func(context.Context, *state) error
	}{
		{"clean", func(ctx context.Context, st *state) error {
			return r.runStage(ctx, st, plugins, pipeline.StagePreBuild)
		}},
		{"bundle", r.bundle},
		{"minimize", r.minimize},
		{"fingerprint", r.fingerprint},
		{"emit", func(ctx context.Context, st *state) error {
			return r.runStage(ctx, st, plugins, pipeline.StageEmit)
		}},
		{"optimize", func(ctx context.Context, st *state) error {
			return r.runStage(ctx, st, plugins, pipeline.StageOptimize)
		}},
		{"html", func(ctx context.Context, st *state) error {
			return r.runStage(ctx, st, plugins, pipeline.StageHTML)
		}},
		{"html-rewrite", func(ctx context.Context, st *state) error {
			return r.runStage(ctx, st, plugins, pipeline.StageHTMLRewrite)
		}},
		{"minimize-html", r.minimizePages},
		{"budgets", r.checkBudgets},
		{"finalize", func(ctx context.Context, st *state) error {
			return r.runStage(ctx, st, plugins, pipeline.StageFinalize)
		}},
		{"write", r.write},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		op := logging.StartOperation(st.logger, step.name)
		if err := step.fn(ctx, st); err != nil {
			r.metrics.RecordStage(step.name, op.EndWithError(ctx, err))
			return nil, err
		}
		r.metrics.RecordStage(step.name, op.End(ctx))
	}

	report := newReport(st)
	var written int64
	for _, a := range report.Assets {
		written += a.Size
	}
	r.metrics.RecordOutput(len(report.Assets), written)
	if r.stats {
		if err := WriteStats(st.outDir, report); err != nil {
			return nil, err
		}
	}
	st.logger.Info(ctx, "Build complete",
		"assets", len(report.Assets),
		"warnings", st.diags.Count(lerrors.SeverityWarning),
		"errors", st.diags.Count(lerrors.SeverityError))
	return report, nil
}

func (r *Runner) runStage(ctx context.Context, st *state, plugins []pipeline.Plugin, stage pipeline.Stage) error {
	for _, p := range plugins {
		if p.Stage() != stage {
			continue
		}
		if err := r.apply(ctx, st, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) apply(ctx context.Context, st *state, p pipeline.Plugin) error {
	switch p := p.(type) {
	case *pipeline.Clean:
		return clean(ctx, st, p)
	case *pipeline.Copy:
		return copyStatic(ctx, st, p)
	case *pipeline.ImageMinimizer:
		return optimizeImages(ctx, st, p)
	case *pipeline.HTMLPage:
		return r.emitPage(ctx, st, p)
	case *pipeline.BaseHref:
		return rewritePages(st, withBaseHref(p.Href))
	case *pipeline.LiveReload:
		return rewritePages(st, withLiveReload(p.Endpoint))
	case *pipeline.Compression:
		return compress(ctx, st, p)
	case *pipeline.CSSExtract:
		// applied while bundling
		return nil
	default:
		return lerrors.NewValidationError("UNKNOWN_PLUGIN", "no handler for plugin "+p.Name())
	}
}

// write flushes the asset set to the output directory.
func (r *Runner) write(ctx context.Context, st *state) error {
	for _, a := range st.assets.All() {
		dst := filepath.Join(st.outDir, filepath.FromSlash(a.Name))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return lerrors.NewIOError("WRITE_FAILED", dst, err)
		}
		if err := os.WriteFile(dst, a.Data, 0644); err != nil {
			return lerrors.NewIOError("WRITE_FAILED", dst, err)
		}
	}
	st.logger.Debug(ctx, "Output written", "dir", st.outDir, "files", st.assets.Len())
	return nil
}
