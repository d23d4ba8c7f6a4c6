package cli

import (
	"github.com/spf13/cobra"

	"github.com/obodeldog/cogni-living-daemon/internal/daemon"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Read commands from stdin and dispatch them to the analytic engines",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}

	return d.Serve(cmd.Context())
}
