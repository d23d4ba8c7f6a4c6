// Package cli implements the cogni-living daemon's command-line interface
// using Cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cogni-living",
	Short: "cogni-living — stdio analytics daemon for a smart-home cognition stack",
	Long: `cogni-living reads newline-delimited JSON commands from stdin and
routes them to five stateful analytic engines — graph topology, occupancy
tracking, security anomaly detection, energy/thermal modelling, and health
trend analysis — writing one response or log line per command to stdout.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
