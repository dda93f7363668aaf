package config

import (
	"fmt"
	"path/filepath"
	"strings"

	lerrors "github.com/conneroisu/landing/internal/errors"
)

// Validate validates configuration values for correctness.
func Validate(config *Config) error {
	if err := validatePaths(&config.Paths); err != nil {
		return lerrors.NewConfigError("INVALID_PATHS", "paths config", err)
	}
	if config.Limits.Images < 0 {
		return lerrors.NewConfigError("INVALID_LIMITS", "limits config",
			fmt.Errorf("images threshold %d must not be negative", config.Limits.Images))
	}
	if err := validateSite(&config.Site); err != nil {
		return lerrors.NewConfigError("INVALID_SITE", "site config", err)
	}
	if err := validatePerformance(&config.Performance); err != nil {
		return lerrors.NewConfigError("INVALID_PERFORMANCE", "performance config", err)
	}
	if lvl := config.Images.PNG.OptimizationLevel; lvl < 0 || lvl > 7 {
		return lerrors.NewConfigError("INVALID_IMAGES", "images config",
			fmt.Errorf("png optimization_level %d is not in range 0-7", lvl))
	}
	if config.Build.Parallelism < 0 {
		return lerrors.NewConfigError("INVALID_BUILD", "build config",
			fmt.Errorf("parallelism %d must not be negative", config.Build.Parallelism))
	}
	if config.Server.Port < 0 || config.Server.Port > 65535 {
		return lerrors.NewConfigError("INVALID_SERVER", "server config",
			fmt.Errorf("port %d is not in valid range 0-65535", config.Server.Port))
	}

	return nil
}

func validatePaths(paths *PathsConfig) error {
	if strings.TrimSpace(paths.Source) == "" {
		return fmt.Errorf("source path is empty")
	}
	if strings.TrimSpace(paths.Output) == "" {
		return fmt.Errorf("output path is empty")
	}

	src, err := filepath.Abs(paths.Source)
	if err != nil {
		return fmt.Errorf("resolving source path: %w", err)
	}
	out, err := filepath.Abs(paths.Output)
	if err != nil {
		return fmt.Errorf("resolving output path: %w", err)
	}
	// the output tree is wiped before every build
	if src == out || strings.HasPrefix(src, out+string(filepath.Separator)) {
		return fmt.Errorf("output path %s must not contain the source path %s", paths.Output, paths.Source)
	}
	return nil
}

func validateSite(site *SiteConfig) error {
	for name, p := range map[string]string{
		"pages_dir":    site.PagesDir,
		"include_root": site.IncludeRoot,
		"favicon":      site.Favicon,
		"content_dir":  site.ContentDir,
	} {
		if err := validateRelativePath(p); err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, p, err)
		}
	}

	if !strings.HasPrefix(site.BaseHref, "/") || !strings.HasSuffix(site.BaseHref, "/") {
		return fmt.Errorf("base_href %q must start and end with '/'", site.BaseHref)
	}
	return nil
}

func validatePerformance(perf *PerformanceConfig) error {
	if perf.MaxAssetSize < 0 || perf.MaxEntrypointSize < 0 {
		return fmt.Errorf("size budgets must not be negative")
	}
	switch perf.Hints {
	case "warning", "error", "false":
		return nil
	default:
		return fmt.Errorf("hints %q is not one of warning, error, false", perf.Hints)
	}
}

// validateRelativePath validates a path that is resolved against the source root.
func validateRelativePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)
	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("path must be relative to the source root")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path contains traversal")
	}

	return nil
}
