package services

import (
	"context"
	"time"

	"github.com/conneroisu/landing/internal/build"
	"github.com/conneroisu/landing/internal/config"
	lerrors "github.com/conneroisu/landing/internal/errors"
	"github.com/conneroisu/landing/internal/logging"
	"github.com/conneroisu/landing/internal/server"
)

// ServeService runs the watch loop behind a live reloading file server.
type ServeService struct {
	config *config.Config
	logger logging.Logger
}

// NewServeService creates a new serve service
func NewServeService(cfg *config.Config, logger logging.Logger) *ServeService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ServeService{config: cfg, logger: logger}
}

// ServeOptions contains options for the serve process
type ServeOptions struct {
	Host  string
	Port  int
	Delay time.Duration
}

// Serve builds the site in development mode, serves the output directory
// and reloads open pages after each successful rebuild. It returns when ctx
// is done or the listener fails.
func (s *ServeService) Serve(ctx context.Context, opts ServeOptions) error {
	host, port := opts.Host, opts.Port
	if host == "" {
		host = s.config.Server.Host
	}
	if port == 0 {
		port = s.config.Server.Port
	}

	builder := NewBuildService(s.config, s.logger)
	defer builder.Close()

	srv := server.New(server.Options{
		Host:      host,
		Port:      port,
		OutputDir: s.config.Paths.Output,
		Logger:    s.logger,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start(ctx)
	}()

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- NewWatchService(builder, s.logger).Watch(ctx, WatchOptions{
			Build: BuildOptions{LiveReload: server.LiveReloadPath},
			Delay: opts.Delay,
			OnBuild: func(_ *build.Report, err error) {
				srv.BuildFinished(err)
			},
		})
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if err != nil {
			err = lerrors.NewIOError("SERVE", srv.Addr(), err)
		}
	case err = <-watchErr:
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		s.logger.Warn(shutdownCtx, shutdownErr, "server shutdown failed")
	}
	return err
}
