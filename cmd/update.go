// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var updateBlockSize int

var updateCmd = &cobra.Command{
	Use:   "update <image>",
	Short: "Write a firmware image to the device",
	Long: `Writes a firmware image block by block. The last block carries the
SHA-1 hash of the entire image; the device verifies the staged copy
against it, activates it and resets. A hash mismatch leaves the
currently running firmware in place.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		image, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if len(image) == 0 {
			return fmt.Errorf("%s: empty image", args[0])
		}

		client, reply, err := Connect()
		if err != nil {
			return err
		}
		defer client.Close()

		if metadata, ok := reply["metadata"].(map[string]any); ok {
			fmt.Printf("Updating %v\n", metadata["product"])
		}

		sum := sha1.Sum(image)
		hash := hex.EncodeToString(sum[:])

		for offset := 0; offset < len(image); offset += updateBlockSize {
			end := offset + updateBlockSize
			if end > len(image) {
				end = len(image)
			}

			firmware := map[string]any{
				"offset": offset,
				"data":   base64.StdEncoding.EncodeToString(image[offset:end]),
			}
			if end == len(image) {
				firmware["hash"] = hash
			}

			status, err := client.Call(map[string]any{
				"method":   "writeFirmware",
				"firmware": firmware,
			})
			if err != nil {
				return err
			}

			result, _ := status["firmware"].(map[string]any)
			switch result["status"] {
			case "success":

			case "hashMismatch":
				return fmt.Errorf("image verification failed, device keeps the running firmware")

			case "invalidOffset":
				return fmt.Errorf("device rejected block offset %d", offset)

			default:
				return fmt.Errorf("unexpected reply at offset %d: %v", offset, result["status"])
			}

			fmt.Printf("\r%d%%", (end*100)/len(image))
		}

		fmt.Println("\nDevice verified the image and resets")
		return nil
	},
}

func init() {
	updateCmd.Flags().IntVar(&updateBlockSize, "block-size", 8192, "Bytes per firmware write request")
	rootCmd.AddCommand(updateCmd)
}
