// Package server serves the built site over HTTP for local development and
// pushes reload notifications to open pages after every rebuild.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/landing/internal/logging"
	"github.com/conneroisu/landing/internal/middleware"
	"github.com/conneroisu/landing/internal/version"
)

// LiveReloadPath is the websocket endpoint injected into development pages.
const LiveReloadPath = "/__livereload"

// Options configures a Server.
type Options struct {
	Host      string
	Port      int
	OutputDir string
	Logger    logging.Logger
}

// Server serves the output directory with live reload.
type Server struct {
	opts         Options
	logger       logging.Logger
	hub          *Hub
	httpServer   *http.Server
	serverMutex  sync.RWMutex
	shutdownOnce sync.Once

	statusMutex sync.RWMutex
	lastBuild   time.Time
	lastError   string
}

// New creates a server over opts.OutputDir.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	logger := opts.Logger.WithComponent("server")
	return &Server{
		opts:   opts,
		logger: logger,
		hub: NewHub(opts.Logger,
			fmt.Sprintf("localhost:%d", opts.Port),
			fmt.Sprintf("127.0.0.1:%d", opts.Port),
			fmt.Sprintf("%s:%d", opts.Host, opts.Port)),
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, fmt.Sprint(s.opts.Port))
}

// Handler returns the routing handler. It is exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(LiveReloadPath, s.hub)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleStatic)
	return middleware.NewChain(
		middleware.Recover(s.logger),
		middleware.Logging(s.logger),
		middleware.SecurityHeaders(),
	).Apply(mux)
}

// Hub returns the live reload hub.
func (s *Server) Hub() *Hub { return s.hub }

// Start listens until ctx is done or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "serving site", "url", "http://"+s.Addr(), "dir", s.opts.OutputDir)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()
		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})
	return shutdownErr
}

// BuildFinished records a rebuild outcome and reloads pages on success.
func (s *Server) BuildFinished(err error) {
	s.statusMutex.Lock()
	s.lastBuild = time.Now()
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	s.statusMutex.Unlock()

	if err == nil {
		s.hub.Reload()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.statusMutex.RLock()
	health := map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().UTC(),
		"version":    version.GetShortVersion(),
		"clients":    s.hub.Clients(),
		"last_build": s.lastBuild,
	}
	if s.lastError != "" {
		health["status"] = "degraded"
		health["build_error"] = s.lastError
	}
	s.statusMutex.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn(r.Context(), err, "failed to encode health response")
	}
}

// handleStatic serves files from the output directory. Extensionless
// paths fall back to the matching page, so /blog/post serves
// blog/post.html and / serves index.html or home.html.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	file, ok := s.resolve(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, file)
}

func (s *Server) resolve(name string) (string, bool) {
	rel := strings.TrimPrefix(name, "/")
	var candidates []string
	switch {
	case rel == "":
		candidates = []string{"index.html", "home.html"}
	case strings.HasSuffix(name, "/"), path.Ext(rel) == "":
		rel = strings.TrimSuffix(rel, "/")
		candidates = []string{rel + ".html", path.Join(rel, "index.html"), rel}
	default:
		candidates = []string{rel}
	}

	for _, c := range candidates {
		file := filepath.Join(s.opts.OutputDir, filepath.FromSlash(c))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			return file, true
		}
	}
	return "", false
}
