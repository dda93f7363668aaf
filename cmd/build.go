package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/conneroisu/landing/internal/build"
	"github.com/conneroisu/landing/internal/services"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Build the site into the output directory",
	Long: `Discover the pages, compose the build configuration and run it.

Development builds keep inline source maps and skip minification. Production
builds minify scripts, styles and pages, set <base href> from site.base_href,
and check the size budgets (performance.hints decides whether an overrun is
a warning or an error).

Examples:
  landing build                        # development build into paths.output
  landing build --production --stats   # production build with stats.json
  landing build -o public              # write somewhere else`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

var (
	buildProduction bool
	buildOutput     string
	buildStats      bool
	buildQuiet      bool
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolVarP(&buildProduction, "production", "p", false, "Build with the production profile")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Output directory (overrides paths.output)")
	buildCmd.Flags().BoolVar(&buildStats, "stats", false, "Write stats.json into the output directory")
	buildCmd.Flags().BoolVarP(&buildQuiet, "quiet", "q", false, "Do not print the asset summary")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	svc := services.NewBuildService(cfg, logger)
	defer svc.Close()

	report, err := svc.Build(cmd.Context(), services.BuildOptions{
		Output:     buildOutput,
		Production: buildProduction,
		Stats:      buildStats,
	})
	if err != nil {
		return err
	}
	if !buildQuiet {
		printReport(cmd.OutOrStdout(), report)
	}
	return nil
}

// printReport writes the asset table and any diagnostics.
func printReport(out io.Writer, report *build.Report) {
	p := message.NewPrinter(language.English)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "Asset\tSize\tKind\t")
	for _, a := range report.Assets {
		p.Fprintf(w, "%s\t%d B\t%s\t\n", a.Name, a.Size, a.Kind)
	}
	_ = w.Flush()

	for _, d := range report.Diagnostics {
		fmt.Fprintln(out, d.String())
	}
	p.Fprintf(out, "%s build: %d assets in %v (hash %s)\n",
		report.Mode, len(report.Assets), report.Duration.Round(time.Millisecond), shortHash(report.Hash))
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
