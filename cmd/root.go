// Package cmd provides the command-line interface for landing.
//
// Configuration is resolved from, highest priority first:
//
//  1. command-line flags
//  2. LANDING_<SECTION>_<OPTION> environment variables, including those
//     loaded from a .env file in the working directory
//  3. the --config file, LANDING_CONFIG_FILE, or .landing.yml
//  4. built-in defaults
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/landing/internal/config"
	"github.com/conneroisu/landing/internal/logging"
)

// ConfigFileEnv names a configuration file to use instead of .landing.yml.
const ConfigFileEnv = "LANDING_CONFIG_FILE"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "landing",
	Short: "Build the landing site from its page conventions",
	Long: `landing builds a static multi-page site. Every pages/<name>/index.js is a
bundle entry and every pages/<name>/index.html is a page template; the two are
paired by name, bundled, fingerprinted and written to the output directory.

Quick Start:
  landing init                    Scaffold a new site
  landing build                   Development build
  landing build --production      Minified, budgeted production build
  landing serve                   Rebuild on change with live reload
  landing list                    Show the discovered pages`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Long-running commands stop when ctx is done.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .landing.yml, can also use "+ConfigFileEnv+")")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))

	AddFlagValidation(rootCmd.PersistentFlags(), "log-format", func(format string) error {
		return validateFormat(format, []string{"text", "json"})
	})
}

// initConfig picks the configuration file and loads .env. A missing file
// is not an error; defaults apply.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Warning: failed to load .env:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(ConfigFileEnv); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".landing")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "Warning: failed to read config file:", err)
		}
	}
}

// loadConfig resolves the configuration for a command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the command logger from --log-level and --log-format.
func newLogger(cmd *cobra.Command) (logging.Logger, error) {
	level, err := logging.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    strings.ToLower(viper.GetString("log-format")),
		Output:    cmd.ErrOrStderr(),
		Component: "landing",
	}), nil
}

// normalizeFlagName accepts --log_level and --LOG-LEVEL for --log-level.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ToLower(strings.ReplaceAll(name, "_", "-")))
}
