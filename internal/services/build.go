// Package services holds the command-level workflows shared by the CLI:
// building, watching, serving and scaffolding a site.
package services

import (
	"context"
	"sync"

	"github.com/conneroisu/landing/internal/build"
	"github.com/conneroisu/landing/internal/config"
	lerrors "github.com/conneroisu/landing/internal/errors"
	"github.com/conneroisu/landing/internal/logging"
	"github.com/conneroisu/landing/internal/pipeline"
	"github.com/conneroisu/landing/internal/scanner"
)

// BuildService runs discovery, composition and execution for one site.
// It keeps a single runner so repeated builds share the fingerprint cache.
type BuildService struct {
	config *config.Config
	logger logging.Logger

	runnerOnce sync.Once
	runner     *build.Runner
	runnerErr  error
	mutex      sync.Mutex
}

// NewBuildService creates a new build service
func NewBuildService(cfg *config.Config, logger logging.Logger) *BuildService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &BuildService{
		config: cfg,
		logger: logger,
	}
}

// BuildOptions contains options for the build process
type BuildOptions struct {
	// Output overrides paths.output when set.
	Output     string
	Production bool
	Stats      bool
	// LiveReload is the websocket path injected into development pages.
	LiveReload string
}

// Compose resolves the pages and returns the configuration Build would run.
func (s *BuildService) Compose(ctx context.Context, opts BuildOptions) (*pipeline.Configuration, error) {
	cfg := s.effectiveConfig(opts)

	pages, err := scanner.NewPageScanner(cfg.Paths.Source, scanner.Options{
		PagesDir: cfg.Site.PagesDir,
		Logger:   s.logger,
	}).Resolve(ctx)
	if err != nil {
		return nil, err
	}

	base := pipeline.ComposePages(cfg, pages)
	if opts.Production {
		return pipeline.Production(base, pipeline.ProductionOptionsFrom(cfg))
	}
	return pipeline.Development(base, pipeline.DevelopmentOptions{LiveReloadEndpoint: opts.LiveReload})
}

// Build performs the complete build process. Builds are serialized.
func (s *BuildService) Build(ctx context.Context, opts BuildOptions) (*build.Report, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	perf := logging.StartOperation(s.logger, "build")

	runner, err := s.getRunner()
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	cfg, err := s.Compose(ctx, opts)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	report, err := runner.Run(ctx, cfg)
	if err != nil {
		perf.EndWithError(ctx, err)
		return report, err
	}

	if opts.Stats && !s.config.Build.Stats {
		if err := build.WriteStats(report.OutputPath, report); err != nil {
			perf.EndWithError(ctx, err)
			return report, err
		}
	}

	for _, d := range report.Diagnostics {
		s.logger.Warn(ctx, nil, d.Message, "page", d.Page, "file", d.File)
	}
	perf.End(ctx, "mode", cfg.Mode, "assets", len(report.Assets), "warnings", len(report.Warnings()))
	return report, nil
}

// Metrics returns the runner's build metrics, or nil before the first build.
func (s *BuildService) Metrics() *build.BuildMetrics {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.runner == nil {
		return nil
	}
	return s.runner.Metrics()
}

// Close releases the runner.
func (s *BuildService) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.runner == nil {
		return nil
	}
	return s.runner.Close()
}

func (s *BuildService) getRunner() (*build.Runner, error) {
	s.runnerOnce.Do(func() {
		s.runner, s.runnerErr = build.NewRunner(build.Options{
			Logger:      s.logger,
			SassBinary:  s.config.Build.SassBinary,
			Parallelism: s.config.Build.Parallelism,
			Stats:       s.config.Build.Stats,
		})
		if s.runnerErr != nil {
			s.runnerErr = lerrors.NewConfigError("RUNNER", "failed to start build runner", s.runnerErr)
		}
	})
	return s.runner, s.runnerErr
}

func (s *BuildService) effectiveConfig(opts BuildOptions) *config.Config {
	cfg := *s.config
	if opts.Output != "" {
		cfg.Paths.Output = opts.Output
	}
	return &cfg
}
