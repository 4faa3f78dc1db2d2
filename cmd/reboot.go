// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rebootPorts uint8

var rebootCmd = &cobra.Command{
	Use:   "reboot",
	Short: "Reboot the device",
	Long: `Reboots the device. With --ports, the device comes up once with the
given number of USB-MIDI ports without touching the persistent
configuration; the next ordinary boot restores the configured count.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := Connect()
		if err != nil {
			return err
		}
		defer client.Close()

		request := map[string]any{"method": "reboot"}
		if cmd.Flags().Changed("ports") {
			request["ports"] = rebootPorts
		}

		// The device resets without replying.
		if err := client.Send(request); err != nil {
			return err
		}

		fmt.Println("Device is rebooting")
		return nil
	},
}

func init() {
	rebootCmd.Flags().Uint8Var(&rebootPorts, "ports", 1, "One-shot USB-MIDI port count for the next boot")
	rootCmd.AddCommand(rebootCmd)
}
