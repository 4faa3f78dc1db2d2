// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/versioduo/V2Device/pkg/device"
	"github.com/versioduo/V2Device/pkg/sysex"
	"github.com/versioduo/V2Device/pkg/virtual"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a virtual device on a serial port",
	Long: `Runs a virtual device with in-memory storage on the given serial
port, for protocol development without hardware. A reboot request
restarts the device in place; the boot-retained state survives the
restart like it would on a real board.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if portName == "" {
			return fmt.Errorf("simulate requires --port")
		}

		conn, err := OpenSerialConnection(portName, baudRate)
		if err != nil {
			return err
		}
		defer conn.Close()

		fmt.Fprintf(os.Stderr, "Virtual device on %s, press Ctrl-C to stop\n", portName)
		return runSimulation(conn)
	},
}

func newSimulatedDevice(board *virtual.Board) (*device.Device, error) {
	d, err := device.New(device.Options{
		Metadata: device.Metadata{
			ID:      "com.versioduo.sim",
			Version: 1,
			Board:   "versioduo:samd:itsybitsy",
		},
		Identity: device.Identity{
			Vendor:      "Versio Duo",
			Product:     "V2 Sim",
			Description: "Virtual Device",
			Home:        "https://versioduo.com",
		},
		VID: 0x6666,
		PID: 0xe500,

		Storage:   board.EEPROM,
		Flash:     board.Flash,
		Hardware:  board.Hardware,
		BootCell:  board.Cell,
		Transport: board.Transport,
		Resetter:  board.Resetter,
	})
	if err != nil {
		return nil, err
	}

	return d, d.Start()
}

func runSimulation(conn Connection) error {
	board := virtual.NewBoard()

	d, err := newSimulatedDevice(board)
	if err != nil {
		return err
	}

	flush := func() error {
		for _, frame := range board.Transport.Drain() {
			if _, err := conn.Write(frame); err != nil {
				return err
			}
		}
		return nil
	}

	collector := sysex.NewCollector()
	resets := board.Resetter.Requests

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}

		for _, b := range buf[:n] {
			frame, err := collector.Feed(b)
			if err != nil || frame == nil {
				continue
			}

			d.Statistics().Input.System.Exclusive++
			if err := d.HandleSystemExclusive(frame); err != nil {
				fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
			}

			if err := flush(); err != nil {
				return err
			}

			// A reset request restarts the device in place. An activated
			// firmware image becomes the running one, like a real reboot
			// into the new firmware.
			if board.Resetter.Requests != resets {
				resets = board.Resetter.Requests
				board.Hardware.Image = board.Flash.Active()

				d, err = newSimulatedDevice(board)
				if err != nil {
					return err
				}

				fmt.Fprintln(os.Stderr, "device rebooted")
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}
