package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gpufanctl",
	Short: "Closed-loop GPU fan control",
	Long: `gpufanctl drives GPU fan duty from a configured temperature
curve with hysteresis, restores driver fan control on exit, and
publishes live device state over a local socket.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and returns a process exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
