package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/landing/internal/build"
	"github.com/conneroisu/landing/internal/services"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Rebuild the site whenever its sources change",
	Long: `Run a development build, then rebuild after every burst of changes
under paths.source. Failed rebuilds are reported and watching continues.
Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchDelay time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDelay, "delay", services.DefaultWatchDelay, "Quiet period before a rebuild starts")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	builder := services.NewBuildService(cfg, logger)
	defer builder.Close()

	return services.NewWatchService(builder, logger).Watch(cmd.Context(), services.WatchOptions{
		Delay: watchDelay,
		OnBuild: func(report *build.Report, err error) {
			if err == nil {
				for _, d := range report.Diagnostics {
					cmd.PrintErrln(d.String())
				}
			}
		},
	})
}
