package services

import (
	"context"
	"time"

	"github.com/conneroisu/landing/internal/build"
	"github.com/conneroisu/landing/internal/logging"
	"github.com/conneroisu/landing/internal/watcher"
)

// DefaultWatchDelay is how long the source tree must be quiet before a
// rebuild starts.
const DefaultWatchDelay = 200 * time.Millisecond

// WatchOptions contains options for the watch loop.
type WatchOptions struct {
	Build BuildOptions
	Delay time.Duration
	// OnBuild is called after every build, including the initial one.
	OnBuild func(report *build.Report, err error)
}

// WatchService rebuilds the site whenever its sources change.
type WatchService struct {
	builder *BuildService
	logger  logging.Logger
}

// NewWatchService creates a watch service over builder.
func NewWatchService(builder *BuildService, logger logging.Logger) *WatchService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &WatchService{builder: builder, logger: logger.WithComponent("watch")}
}

// Watch builds once, then rebuilds on every debounced batch of source
// changes until ctx is done. Build failures are reported and the loop keeps
// running.
func (s *WatchService) Watch(ctx context.Context, opts WatchOptions) error {
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultWatchDelay
	}

	cfg := s.builder.effectiveConfig(opts.Build)
	rebuild := func(reason string) {
		report, err := s.builder.Build(ctx, opts.Build)
		if err != nil {
			s.logger.Error(ctx, err, "build failed", "trigger", reason)
		} else {
			s.logger.Info(ctx, "build finished", "trigger", reason, "duration", report.Duration)
		}
		if opts.OnBuild != nil {
			opts.OnBuild(report, err)
		}
	}

	fw, err := watcher.NewFileWatcher(delay, s.logger)
	if err != nil {
		return err
	}
	defer fw.Stop()

	fw.AddFilter(watcher.NoJunkFilter)
	fw.AddFilter(watcher.NoDependencyFilter)
	fw.AddFilter(watcher.NoGitFilter)
	fw.AddFilter(watcher.ExcludeDirFilter(cfg.Paths.Output))
	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		if ctx.Err() != nil {
			return nil
		}
		for _, e := range events {
			s.logger.Debug(ctx, "source changed", "path", e.Path, "type", e.Type.String())
		}
		rebuild(events[0].Path)
		return nil
	})

	if err := fw.AddRecursive(cfg.Paths.Source); err != nil {
		return err
	}

	rebuild("initial")

	if err := fw.Start(ctx); err != nil {
		return err
	}
	s.logger.Info(ctx, "watching for changes", "source", cfg.Paths.Source)

	<-ctx.Done()
	return nil
}
