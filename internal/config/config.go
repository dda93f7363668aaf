// Package config provides configuration management for landing builds
// using Viper for flexible configuration loading from files, environment
// variables, and command-line flags.
//
// The resolved Config is the environment collaborator of the build: it names
// the source and output trees, the inlining threshold for images and fonts,
// the site conventions (pages directory, include root, favicon, static
// content, deployment base href), size budgets and image recompression
// settings. It is loaded once and passed by value into every stage.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides (LANDING_PATHS_OUTPUT, ...).
const EnvPrefix = "LANDING"

type Config struct {
	Paths       PathsConfig       `mapstructure:"paths" yaml:"paths" json:"paths"`
	Limits      LimitsConfig      `mapstructure:"limits" yaml:"limits" json:"limits"`
	Site        SiteConfig        `mapstructure:"site" yaml:"site" json:"site"`
	Performance PerformanceConfig `mapstructure:"performance" yaml:"performance" json:"performance"`
	Images      ImagesConfig      `mapstructure:"images" yaml:"images" json:"images"`
	Build       BuildConfig       `mapstructure:"build" yaml:"build" json:"build"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server" json:"server"`
}

type PathsConfig struct {
	Source string `mapstructure:"source" yaml:"source" json:"source"`
	Output string `mapstructure:"output" yaml:"output" json:"output"`
}

// LimitsConfig holds byte thresholds. Assets strictly smaller than
// Images are inlined as data URIs.
type LimitsConfig struct {
	Images int64 `mapstructure:"images" yaml:"images" json:"images"`
}

// SiteConfig holds the source tree conventions. All paths are relative to
// Paths.Source.
type SiteConfig struct {
	PagesDir    string `mapstructure:"pages_dir" yaml:"pages_dir" json:"pages_dir"`
	IncludeRoot string `mapstructure:"include_root" yaml:"include_root" json:"include_root"`
	Favicon     string `mapstructure:"favicon" yaml:"favicon" json:"favicon"`
	ContentDir  string `mapstructure:"content_dir" yaml:"content_dir" json:"content_dir"`
	BaseHref    string `mapstructure:"base_href" yaml:"base_href" json:"base_href"`
}

type PerformanceConfig struct {
	MaxEntrypointSize int64  `mapstructure:"max_entrypoint_size" yaml:"max_entrypoint_size" json:"max_entrypoint_size"`
	MaxAssetSize      int64  `mapstructure:"max_asset_size" yaml:"max_asset_size" json:"max_asset_size"`
	Hints             string `mapstructure:"hints" yaml:"hints" json:"hints"`
}

type ImagesConfig struct {
	GIF  GIFConfig  `mapstructure:"gif" yaml:"gif" json:"gif"`
	JPEG JPEGConfig `mapstructure:"jpeg" yaml:"jpeg" json:"jpeg"`
	PNG  PNGConfig  `mapstructure:"png" yaml:"png" json:"png"`
	SVG  SVGConfig  `mapstructure:"svg" yaml:"svg" json:"svg"`
}

type GIFConfig struct {
	Enabled    bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Interlaced bool `mapstructure:"interlaced" yaml:"interlaced" json:"interlaced"`
}

type JPEGConfig struct {
	Enabled     bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Progressive bool `mapstructure:"progressive" yaml:"progressive" json:"progressive"`
}

type PNGConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	OptimizationLevel int  `mapstructure:"optimization_level" yaml:"optimization_level" json:"optimization_level"`
}

type SVGConfig struct {
	Enabled       bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RemoveViewBox bool `mapstructure:"remove_view_box" yaml:"remove_view_box" json:"remove_view_box"`
}

type BuildConfig struct {
	Stats       bool   `mapstructure:"stats" yaml:"stats" json:"stats"`
	Compress    bool   `mapstructure:"compress" yaml:"compress" json:"compress"`
	SassBinary  string `mapstructure:"sass_binary" yaml:"sass_binary" json:"sass_binary"`
	Parallelism int    `mapstructure:"parallelism" yaml:"parallelism" json:"parallelism"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host" json:"host"`
	Port int    `mapstructure:"port" yaml:"port" json:"port"`
}

// SetDefaults registers every key with its default. Registering all keys is
// also what lets AutomaticEnv overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("paths.source", "src")
	v.SetDefault("paths.output", "dist")

	v.SetDefault("limits.images", 8192)

	v.SetDefault("site.pages_dir", "pages")
	v.SetDefault("site.include_root", "html")
	v.SetDefault("site.favicon", "images/favicon.ico")
	v.SetDefault("site.content_dir", "images/content")
	v.SetDefault("site.base_href", "/landing/")

	v.SetDefault("performance.max_entrypoint_size", 512000)
	v.SetDefault("performance.max_asset_size", 512000)
	v.SetDefault("performance.hints", "warning")

	v.SetDefault("images.gif.enabled", true)
	v.SetDefault("images.gif.interlaced", true)
	v.SetDefault("images.jpeg.enabled", true)
	v.SetDefault("images.jpeg.progressive", true)
	v.SetDefault("images.png.enabled", true)
	v.SetDefault("images.png.optimization_level", 5)
	v.SetDefault("images.svg.enabled", true)
	v.SetDefault("images.svg.remove_view_box", false)

	v.SetDefault("build.stats", false)
	v.SetDefault("build.compress", false)
	v.SetDefault("build.sass_binary", "")
	v.SetDefault("build.parallelism", 0)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 3000)
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	cfg, err := LoadFrom(v)
	if err != nil {
		// defaults are static and always valid
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// Load resolves the configuration from the global viper instance, which the
// CLI binds to flags, the config file and the environment.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom resolves the configuration from v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	config.normalize()

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) normalize() {
	c.Site.PagesDir = strings.Trim(c.Site.PagesDir, "/")
	c.Performance.Hints = strings.ToLower(strings.TrimSpace(c.Performance.Hints))
	if c.Performance.Hints == "off" || c.Performance.Hints == "none" {
		c.Performance.Hints = "false"
	}
}
