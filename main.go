// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0
//
// v2ctl - V2 device control
//
// A CLI tool to discover V2 USB-MIDI devices, read and write their
// configuration, and push firmware updates over the JSON-in-SysEx
// management protocol.

package main

import (
	"os"

	"github.com/versioduo/V2Device/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
