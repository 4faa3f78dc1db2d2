// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the device's metadata, configuration and state",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, reply, err := Connect()
		if err != nil {
			return err
		}
		defer client.Close()

		if infoJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(reply)
		}

		printSection := func(title string, obj map[string]any, keys ...string) {
			fmt.Printf("%s:\n", title)
			for _, key := range keys {
				value, ok := obj[key]
				if !ok {
					continue
				}
				fmt.Printf("  %-12s %v\n", key, value)
			}
		}

		if metadata, ok := reply["metadata"].(map[string]any); ok {
			printSection("Device", metadata,
				"product", "description", "vendor", "version", "serial", "home")
		}

		if system, ok := reply["system"].(map[string]any); ok {
			if firmware, ok := system["firmware"].(map[string]any); ok {
				printSection("Firmware", firmware, "id", "board", "start", "size", "hash", "download")
			}
			if boot, ok := system["boot"].(map[string]any); ok {
				printSection("Boot", boot, "uptime", "id")
			}
			if hardware, ok := system["hardware"].(map[string]any); ok {
				if usb, ok := hardware["usb"].(map[string]any); ok {
					printSection("USB", usb, "vid", "pid")
					if ports, ok := usb["ports"].(map[string]any); ok {
						printSection("Ports", ports, "configured", "current")
					}
				}
			}
		}

		if configuration, ok := reply["configuration"].(map[string]any); ok {
			fmt.Println("Configuration:")
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("  ", "  ")
			fmt.Print("  ")
			if err := enc.Encode(configuration); err != nil {
				return err
			}
		}

		return nil
	},
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Print the raw reply as JSON")
	rootCmd.AddCommand(infoCmd)
}
