// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configureName  string
	configurePorts uint8
	configureFile  string
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Write the device's persistent configuration",
	Long: `Writes the persistent configuration. The current configuration is
fetched first, the given fields are merged into it, and the result is
written back. A JSON file replaces the device-specific section wholesale.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, reply, err := Connect()
		if err != nil {
			return err
		}
		defer client.Close()

		configuration, _ := reply["configuration"].(map[string]any)
		if configuration == nil {
			configuration = map[string]any{}
		}

		if configureFile != "" {
			raw, err := os.ReadFile(configureFile)
			if err != nil {
				return err
			}

			var fromFile map[string]any
			if err := json.Unmarshal(raw, &fromFile); err != nil {
				return fmt.Errorf("%s: %v", configureFile, err)
			}
			configuration = fromFile
		}

		usb, _ := configuration["usb"].(map[string]any)
		if usb == nil {
			usb = map[string]any{}
		}

		if cmd.Flags().Changed("name") {
			usb["name"] = configureName
			configuration["usb"] = usb
		}

		if cmd.Flags().Changed("ports") {
			usb["ports"] = configurePorts
			configuration["usb"] = usb
		}

		reply, err = client.Call(map[string]any{
			"method":        "writeConfiguration",
			"configuration": configuration,
		})
		if err != nil {
			return err
		}

		if written, ok := reply["configuration"].(map[string]any); ok {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(written)
		}

		return nil
	},
}

func init() {
	configureCmd.Flags().StringVar(&configureName, "name", "", "Device name (2-31 characters, empty clears)")
	configureCmd.Flags().Uint8Var(&configurePorts, "ports", 1, "Number of USB-MIDI ports (1-16)")
	configureCmd.Flags().StringVar(&configureFile, "file", "", "JSON file with the configuration to write")
	rootCmd.AddCommand(configureCmd)
}
