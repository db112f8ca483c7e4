package cmd

import (
	"github.com/spf13/cobra"

	"codeberg.org/isvind/gpufanctl/internal/daemon"
)

var configPath string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the fan control daemon",
	Long: `Runs the control loop against the single local GPU. Requires
root and exclusive access to the control socket. Fan control is
returned to the driver when the daemon exits.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return daemon.Run(configPath)
	},
}

func init() {
	daemonCmd.Flags().StringVarP(&configPath, "config", "c", "",
		"path to the TOML configuration file")
	daemonCmd.MarkFlagRequired("config") //nolint:errcheck

	rootCmd.AddCommand(daemonCmd)
}
