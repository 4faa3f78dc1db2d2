// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// MIDI connection flags
	midiPortName string

	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "v2ctl",
	Short: "V2 device control",
	Long: `v2ctl - Control V2 USB-MIDI devices.

Provides commands to inspect a device, edit its persistent configuration,
and push firmware updates, tunneled through MIDI System Exclusive messages.

Connection modes:
  MIDI:      --midi "V2 Device" (substring match of the port name)
  Serial:    --port /dev/ttyUSB0 [--baud 31250] (DIN-MIDI byte stream)
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the V2_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell
history.

Defaults for all connection flags can be stored in a YAML config file,
see 'v2ctl help' for the search path.`,
	Version: "1.2.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&midiPortName, "midi", "m", "", "MIDI port name (substring match)")

	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 31250, "Baud rate (serial only)")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.config/v2ctl/config.yaml)")

	cobra.OnInitialize(applyConfigFile)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
