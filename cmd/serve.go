package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/landing/internal/services"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Serve the site with rebuild and live reload",
	Long: `Build in development mode, serve paths.output over HTTP and rebuild on
every source change. Open pages reload after each successful rebuild.

Examples:
  landing serve                 # http://localhost:3000
  landing serve -p 8080         # another port
  landing serve --host 0.0.0.0  # listen on every interface`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 3000, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().Duration("delay", services.DefaultWatchDelay, "Quiet period before a rebuild starts")
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))

	AddFlagValidation(serveCmd.Flags(), "port", ValidatePort)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	delay, err := cmd.Flags().GetDuration("delay")
	if err != nil {
		return err
	}

	cmd.Printf("Serving %s at http://%s:%d\n", cfg.Paths.Output, cfg.Server.Host, cfg.Server.Port)
	return services.NewServeService(cfg, logger).Serve(cmd.Context(), services.ServeOptions{Delay: delay})
}
