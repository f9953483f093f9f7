// Package cmd implements the CLI (Command Line Interface) of the application.
//
// serve - Run the reporter against a simulated host until interrupted
// send - Send exactly one telemetry payload and exit
// config init - Write the default config template
// config check - Validate a config and print the derived endpoints
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	BuildVersion = "master" //nolint:gochecknoglobals
	BuildCommit  = ""       //nolint:gochecknoglobals
	BuildDate    = ""       //nolint:gochecknoglobals
)

type BuildInfo struct {
	BuildVersion string
	Commit       string
	Date         string
}

func Version() BuildInfo {
	return BuildInfo{
		BuildVersion: BuildVersion,
		Commit:       BuildCommit,
		Date:         BuildDate,
	}
}

type rootOpts struct {
	cfgFile  string
	logLevel string
}

// newRootCmd builds the command tree. A fresh tree per call keeps flag state out of globals.
func newRootCmd() *cobra.Command {
	opts := &rootOpts{}

	rootCmd := &cobra.Command{
		Use:           "statistics",
		Short:         "Reports game server statistics to a telemetry endpoint",
		Version:       BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "",
		"config file (default searches ./statistics.json, ./config/statistics.json and $HOME/statistics.json)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd(opts))
	rootCmd.AddCommand(sendCmd(opts))

	configRoot := configCmd()
	configRoot.AddCommand(configInitCmd(opts))
	configRoot.AddCommand(configCheckCmd(opts))
	rootCmd.AddCommand(configRoot)

	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once.
func Execute() {
	if BuildVersion == "" {
		BuildVersion = "master"
	}

	if errExecute := newRootCmd().Execute(); errExecute != nil {
		os.Exit(1)
	}
}
