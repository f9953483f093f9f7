package cmd

import (
	"github.com/hytalede/statistics/internal/probe"
	"github.com/spf13/cobra"
)

func serveCmd(root *rootOpts) *cobra.Command {
	opts := appOpts{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reporter against a simulated host",
		Long: `Run the reporter against a simulated host until SIGINT or SIGTERM is received.

The optional status server is enabled with http.enabled in the config file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, errApp := NewStatistics(cmd.Context(), root, opts)
			if errApp != nil {
				return errApp
			}

			defer app.Close()

			return app.Serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().Int64Var(&opts.intervalSeconds, "interval-seconds", 0, "override the configured send interval")
	cmd.Flags().IntVar(&opts.pingAttempts, "ping-attempts", probe.DefaultAttempts, "latency probes per send")

	return cmd
}
