package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/landing/internal/services"
)

var initCmd = &cobra.Command{
	Use:     "init [directory]",
	Aliases: []string{"i"},
	Short:   "Scaffold a new site",
	Long: `Create the source conventions (pages, includes, static content and a
favicon), an example home page and a .landing.yml holding the defaults.

Examples:
  landing init              # scaffold in the current directory
  landing init my-site      # scaffold in ./my-site
  landing init --minimal    # directories and config only`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	initMinimal bool
	initForce   bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initMinimal, "minimal", false, "Skip the example page")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	if err := services.NewInitService().InitProject(services.InitOptions{
		ProjectDir: dir,
		Minimal:    initMinimal,
		Force:      initForce,
	}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized landing site in %s\n", dir)
	return nil
}
