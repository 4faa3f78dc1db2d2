// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.bug.st/serial"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List MIDI ports and serial devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		drv, err := rtmididrv.New()
		if err != nil {
			return fmt.Errorf("rtmidi: %v", err)
		}
		defer drv.Close()

		ins, err := drv.Ins()
		if err != nil {
			return err
		}

		fmt.Println("MIDI inputs:")
		if len(ins) == 0 {
			fmt.Println("  (none)")
		}
		for _, in := range ins {
			fmt.Printf("  %s\n", in.String())
		}

		outs, err := drv.Outs()
		if err != nil {
			return err
		}

		fmt.Println("MIDI outputs:")
		if len(outs) == 0 {
			fmt.Println("  (none)")
		}
		for _, out := range outs {
			fmt.Printf("  %s\n", out.String())
		}

		ports, err := serial.GetPortsList()
		if err != nil {
			return err
		}

		fmt.Println("Serial ports:")
		if len(ports) == 0 {
			fmt.Println("  (none)")
		}
		for _, port := range ports {
			fmt.Printf("  %s\n", port)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
