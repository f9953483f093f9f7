package cmd

import (
	"fmt"

	"github.com/hytalede/statistics/internal/config"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "config/statistics.json"

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Config file utilities",
	}
}

func configInitCmd(root *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config template",
		Long:  "Write the default config template to --config, or " + defaultConfigPath + " when unset. An existing file is left untouched.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := root.cfgFile
			if path == "" {
				path = defaultConfigPath
			}

			created, errCreate := config.EnsureExists(path)
			if errCreate != nil {
				return errCreate
			}

			if created {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Config already exists: %s\n", path)
			}

			return nil
		},
	}
}

func configCheckCmd(root *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the config and print the derived endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, errLoad := config.NewStore(root.cfgFile).Load()
			if errLoad != nil {
				return errLoad
			}

			conf := settings.Reporter
			out := cmd.OutOrStdout()

			_, _ = fmt.Fprintf(out, "Telemetry: %s\n", conf.TelemetryEndpoint())
			_, _ = fmt.Fprintf(out, "Ping:      %s\n", conf.PingEndpoint())
			_, _ = fmt.Fprintf(out, "Vanity:    %s\n", conf.VanityURL())
			_, _ = fmt.Fprintf(out, "Interval:  %s\n", conf.Interval())
			_, _ = fmt.Fprintf(out, "Players:   %t\n", conf.SendPlayerList())
			_, _ = fmt.Fprintf(out, "Plugins:   %t\n", conf.SendPluginList())

			return nil
		},
	}
}
