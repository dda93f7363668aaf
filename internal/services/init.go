package services

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/landing/internal/config"
	lerrors "github.com/conneroisu/landing/internal/errors"
)

// ConfigFileName is the project configuration file written by init and
// read by every command.
const ConfigFileName = ".landing.yml"

// InitService scaffolds a new site source tree.
type InitService struct{}

// NewInitService creates a new initialization service
func NewInitService() *InitService {
	return &InitService{}
}

// InitOptions contains options for project initialization
type InitOptions struct {
	ProjectDir string
	// Minimal skips the example pages.
	Minimal bool
	// Force overwrites existing files.
	Force bool
}

// InitProject lays out the source conventions and writes a configuration
// file holding the defaults.
func (s *InitService) InitProject(opts InitOptions) error {
	if err := os.MkdirAll(opts.ProjectDir, 0755); err != nil {
		return lerrors.NewIOError("INIT_DIR", opts.ProjectDir, err)
	}

	cfg := config.Default()
	if err := s.createDirectoryStructure(opts.ProjectDir, cfg); err != nil {
		return err
	}
	if err := s.createConfigFile(opts, cfg); err != nil {
		return err
	}
	if opts.Minimal {
		return nil
	}
	return s.createExamplePages(opts, cfg)
}

func (s *InitService) createDirectoryStructure(projectDir string, cfg *config.Config) error {
	src := filepath.Join(projectDir, cfg.Paths.Source)
	dirs := []string{
		filepath.Join(src, cfg.Site.PagesDir),
		filepath.Join(src, cfg.Site.IncludeRoot),
		filepath.Join(src, cfg.Site.ContentDir),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return lerrors.NewIOError("INIT_DIR", dir, err)
		}
	}
	return nil
}

func (s *InitService) createConfigFile(opts InitOptions, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return lerrors.NewConfigError("INIT_CONFIG", "failed to encode default configuration", err)
	}
	return s.writeFile(opts, ConfigFileName, data)
}

func (s *InitService) createExamplePages(opts InitOptions, cfg *config.Config) error {
	pages := filepath.Join(cfg.Paths.Source, cfg.Site.PagesDir, "home")
	includes := filepath.Join(cfg.Paths.Source, cfg.Site.IncludeRoot)
	content := filepath.Join(cfg.Paths.Source, cfg.Site.ContentDir)

	files := map[string]string{
		filepath.Join(includes, "header.html"): exampleHeader,
		filepath.Join(pages, "index.html"):     fmt.Sprintf(examplePage, "Home"),
		filepath.Join(pages, "index.js"):       exampleScript,
		filepath.Join(pages, "style.css"):      exampleStyle,
		filepath.Join(content, ".gitkeep"):     "",
	}
	for name, data := range files {
		if err := s.writeFile(opts, name, []byte(data)); err != nil {
			return err
		}
	}
	// an empty favicon keeps the first build from failing
	return s.writeFile(opts, filepath.Join(cfg.Paths.Source, cfg.Site.Favicon), nil)
}

func (s *InitService) writeFile(opts InitOptions, name string, data []byte) error {
	path := filepath.Join(opts.ProjectDir, name)
	if !opts.Force {
		if _, err := os.Stat(path); err == nil {
			return lerrors.NewValidationError("INIT_EXISTS", fmt.Sprintf("%s already exists (use --force to overwrite)", path))
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return lerrors.NewIOError("INIT_DIR", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return lerrors.NewIOError("INIT_WRITE", path, err)
	}
	return nil
}

const exampleHeader = `<header><a href="home.html">Landing</a></header>
`

const examplePage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>%s</title>
</head>
<body>
  <include src="header.html"></include>
  <main></main>
</body>
</html>
`

const exampleScript = `import './style.css';

document.querySelector('main').textContent = 'Hello from landing';
`

const exampleStyle = `main {
  font-family: sans-serif;
}
`
