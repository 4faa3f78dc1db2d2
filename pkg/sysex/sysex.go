// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

// Package sysex implements the MIDI System Exclusive transport used by
// V2 devices. Requests and replies are JSON documents carried in a SysEx
// frame under the research/private manufacturer ID; non-ASCII content is
// escaped to fit the 7 bit byte stream.
package sysex

// Framing bytes
const (
	Start = 0xf0
	End   = 0xf7

	// VendorPrivate is the SysEx research/prototype/private manufacturer ID.
	VendorPrivate = 0x7d
)

// Message size limits. The firmware update packet is 8k bytes, base64
// encoded, wrapped in JSON.
const (
	MaxMessageSize = 12 * 1024
	MinRequestSize = 24
)

// Frame wraps an escaped JSON payload in SysEx start/end markers and the
// private manufacturer ID.
func Frame(payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+3)
	frame = append(frame, Start, VendorPrivate)
	frame = append(frame, payload...)
	frame = append(frame, End)
	return frame
}
