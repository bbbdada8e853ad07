package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clickloop/internal/adapter/tui/uxerror"
	"clickloop/internal/infra/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "clickloop",
	Short: "Cycle through a list of URLs on a schedule",
	Long: `clickloop opens each enabled link in turn, keeps it on screen for its
interval, and moves on until the run is stopped or a limit is reached.

Get started:
  clickloop link add https://example.com   Add a link
  clickloop run                            Run the cycle until interrupted
  clickloop serve                          Start the web viewer and RPC gateway
  clickloop dashboard                      Launch the terminal dashboard`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, uxerror.Humanize(err).Render())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: $CLICKLOOP_CONFIG or "+config.DefaultPath+")")

	rootCmd.Version = Version
	rootCmd.AddCommand(
		runCmd,
		serveCmd,
		dashboardCmd,
		linkCmd,
		settingsCmd,
		logsCmd,
		encryptCmd,
	)
}

// configPath resolves the config file from the flag, the environment, or the default.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if p := os.Getenv("CLICKLOOP_CONFIG"); p != "" {
		return p
	}
	return config.DefaultPath
}
