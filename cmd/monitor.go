package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"codeberg.org/isvind/gpufanctl/internal/monitor"
	"codeberg.org/isvind/gpufanctl/internal/state"
)

var refreshInterval float64

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch live daemon state in the terminal",
	Long: `Connects to a running daemon over its control socket and
renders device temperature, fan state, and clocks at a fixed refresh
cadence. Press q to quit.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := monitor.ValidateRefreshInterval(refreshInterval); err != nil {
			return err
		}

		client := monitor.NewClient(state.SocketPath)
		interval := time.Duration(refreshInterval * float64(time.Second))

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		return monitor.Run(ctx, client, interval)
	},
}

func init() {
	monitorCmd.Flags().Float64VarP(&refreshInterval, "refresh-interval", "r", 1.0,
		"seconds between probes, within (0.1, 10]")

	rootCmd.AddCommand(monitorCmd)
}
