// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"

	"github.com/versioduo/V2Device/pkg/sysex"
)

var logCapture string

// traceRecord is one captured frame in a trace file.
type traceRecord struct {
	Time  time.Time `cbor:"time"`
	Frame []byte    `cbor:"frame"`
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print the device's system exclusive traffic",
	Long: `Prints every system exclusive frame received from the connection.
JSON payloads are pretty-printed, everything else is shown as hex.
With --capture, frames are also appended to a CBOR trace file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, desc, err := OpenConnection()
		if err != nil {
			return err
		}
		defer conn.Close()

		fmt.Fprintf(os.Stderr, "Logging %s, press Ctrl-C to stop\n", desc)

		var capture *os.File
		var enc *cbor.Encoder
		if logCapture != "" {
			capture, err = os.OpenFile(logCapture, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
			if err != nil {
				return err
			}
			defer capture.Close()
			enc = cbor.NewEncoder(capture)
		}

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

		frames := make(chan []byte, 16)
		go func() {
			collector := sysex.NewCollector()

			buf := make([]byte, 4096)
			for {
				n, err := conn.Read(buf)
				if err != nil {
					close(frames)
					return
				}

				for _, b := range buf[:n] {
					frame, err := collector.Feed(b)
					if err != nil || frame == nil {
						continue
					}
					frames <- frame
				}
			}
		}()

		for {
			select {
			case frame, ok := <-frames:
				if !ok {
					return ErrConnectionClosed
				}

				printFrame(frame)

				if enc != nil {
					if err := enc.Encode(traceRecord{Time: time.Now(), Frame: frame}); err != nil {
						return err
					}
				}

			case <-interrupt:
				fmt.Fprintln(os.Stderr)
				return nil
			}
		}
	},
}

func printFrame(frame []byte) {
	stamp := time.Now().Format("15:04:05.000")

	if len(frame) > 4 && frame[1] == sysex.VendorPrivate && frame[2] == '{' {
		var pretty map[string]any
		if err := json.Unmarshal(frame[2:len(frame)-1], &pretty); err == nil {
			raw, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Printf("%s %s\n", stamp, raw)
			return
		}
	}

	fmt.Printf("%s % x\n", stamp, frame)
}

func init() {
	logCmd.Flags().StringVar(&logCapture, "capture", "", "Append frames to a CBOR trace file")
	rootCmd.AddCommand(logCmd)
}
