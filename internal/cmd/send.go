package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hytalede/statistics/internal/dispatch"
	"github.com/hytalede/statistics/internal/probe"
	"github.com/spf13/cobra"
)

var errRejected = errors.New("telemetry rejected")

func sendCmd(root *rootOpts) *cobra.Command {
	opts := appOpts{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send exactly one telemetry payload and exit",
		Long: `Send exactly one telemetry payload built from a simulated host and exit.

Exits with a non-zero status when the payload could not be delivered or the endpoint did not accept it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, errApp := NewStatistics(cmd.Context(), root, opts)
			if errApp != nil {
				return errApp
			}

			defer app.Close()

			simulated, errSimulated := newSimulatedAdapter(simulatedMaxPlayers, "v1.0.0-alpha")
			if errSimulated != nil {
				return errSimulated
			}

			statsPlugin, errPlugin := app.newPlugin(simulated, opts.pingAttempts)
			if errPlugin != nil {
				return errPlugin
			}

			defer statsPlugin.Close()

			endpoint := app.settings.Reporter.TelemetryEndpoint()

			result, errSend := statsPlugin.SendOnceNow(cmd.Context())
			if errSend != nil {
				verdict := dispatch.ClassifyError(errSend, endpoint)
				verdict.Log(cmd.Context())

				return errSend
			}

			verdict := dispatch.Classify(result, endpoint)
			verdict.Log(cmd.Context())

			printResult(cmd, endpoint, result)

			if !verdict.Accepted {
				return fmt.Errorf("%w: HTTP %d", errRejected, result.StatusCode)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&opts.pingAttempts, "ping-attempts", probe.DefaultAttempts, "latency probes before sending")

	return cmd
}

func printResult(cmd *cobra.Command, endpoint string, result dispatch.SendResult) {
	out := cmd.OutOrStdout()

	_, _ = fmt.Fprintf(out, "Endpoint:  %s\n", endpoint)
	_, _ = fmt.Fprintf(out, "Status:    %d\n", result.StatusCode)

	if body := strings.TrimSpace(result.ResponseBody); body != "" {
		size := humanize.Bytes(uint64(len(result.ResponseBody)))
		if result.Truncated {
			size += " (truncated)"
		}

		_, _ = fmt.Fprintf(out, "Body:      %s\n%s\n", size, body)
	}
}
