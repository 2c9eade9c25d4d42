// Package cmd wires the CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "web-scraper",
	Short: "Concurrent web scraper with per-domain rate limiting",
	Long: `web-scraper schedules seed URLs onto a bounded worker pool,
honors per-domain request quotas and spacing, retries transient fetch
failures with linear backoff, and reports every outcome to the
configured sinks.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (YAML)")
}
