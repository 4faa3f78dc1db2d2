// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var channelCmd = &cobra.Command{
	Use:   "channel <number>",
	Short: "Switch the device's active channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid channel %q", args[0])
		}

		client, _, err := Connect()
		if err != nil {
			return err
		}
		defer client.Close()

		_, err = client.Call(map[string]any{
			"method":  "switchChannel",
			"channel": channel,
		})
		return err
	},
}

func init() {
	rootCmd.AddCommand(channelCmd)
}
