// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase the device's persistent configuration",
	Long: `Erases the persistent configuration. The device falls back to its
built-in defaults; the live state is untouched until the next reboot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := Connect()
		if err != nil {
			return err
		}
		defer client.Close()

		// The device erases and resets without replying.
		if err := client.Send(map[string]any{"method": "eraseConfiguration"}); err != nil {
			return err
		}

		fmt.Println("Configuration erased, device is rebooting")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eraseCmd)
}
