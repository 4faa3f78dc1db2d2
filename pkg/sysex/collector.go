// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package sysex

import "fmt"

// Collector states
const (
	stateIdle = iota
	stateCollecting
)

// Collector assembles SysEx frames from a raw MIDI byte stream, one byte
// at a time. Interleaved system realtime bytes are tolerated, any other
// status byte aborts the frame. Used by transports which deliver plain
// byte streams, like DIN-MIDI over a serial line or a WebSocket bridge.
type Collector struct {
	state  int
	buffer []byte
}

// NewCollector creates a new frame collector.
func NewCollector() *Collector {
	return &Collector{
		state:  stateIdle,
		buffer: make([]byte, 0, MaxMessageSize),
	}
}

// Reset discards any partially collected frame.
func (c *Collector) Reset() {
	c.state = stateIdle
	c.buffer = c.buffer[:0]
}

// Feed processes a single byte. It returns a complete frame including the
// start/end markers, or nil while the frame is incomplete. An error resets
// the collector; the caller just keeps feeding bytes.
func (c *Collector) Feed(b byte) ([]byte, error) {
	// System realtime messages may appear in the middle of a frame.
	if b >= 0xf8 {
		return nil, nil
	}

	if b == Start {
		c.Reset()
		c.state = stateCollecting
		c.buffer = append(c.buffer, b)
		return nil, nil
	}

	switch c.state {
	case stateIdle:
		// Waiting for a start marker.
		return nil, nil

	case stateCollecting:
		if b == End {
			frame := make([]byte, len(c.buffer)+1)
			copy(frame, c.buffer)
			frame[len(frame)-1] = b
			c.Reset()
			return frame, nil
		}

		if b >= 0x80 {
			c.Reset()
			return nil, fmt.Errorf("sysex: frame aborted by status byte 0x%02x", b)
		}

		if len(c.buffer) >= MaxMessageSize {
			c.Reset()
			return nil, fmt.Errorf("sysex: frame exceeds %d bytes", MaxMessageSize)
		}

		c.buffer = append(c.buffer, b)
		return nil, nil

	default:
		c.Reset()
		return nil, fmt.Errorf("sysex: invalid state: %d", c.state)
	}
}
