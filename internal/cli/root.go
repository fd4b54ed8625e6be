//go:build !tinygo

// Package cli is the host command line: the simulator, the Raspberry Pi
// runner and flash image tools.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pinlock/internal/buildinfo"
	"pinlock/internal/hostcfg"
)

// NewRootCmd builds the pinlock command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pinlock",
		Short: "Three-button PIN entry firmware and host tools",
		Long: `pinlock runs the PIN entry firmware on the desktop (window or
scripted headless mode) or on a Raspberry Pi with an SSD1306 panel,
and inspects the NVS flash image that holds the PIN.`,
		SilenceUsage: true,
	}
	cmd.Version = buildinfo.Short()
	cmd.PersistentFlags().String("config", "", "config file (default is $XDG_CONFIG_HOME/pinlock/pinlock.yaml or ./pinlock.yaml)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newNVSCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (hostcfg.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return hostcfg.Config{}, err
	}
	return hostcfg.Load(cmd, path)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}
