// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"encoding/json"

	"github.com/versioduo/V2Device/pkg/sysex"
)

// The SysEx channel is shared and noisy: other vendors' traffic, foreign
// JSON protocols, stale retransmissions from before a reboot. Every guard
// rejects silently, a reply to input we do not own would only confuse
// other listeners. The guards run in order; the first failure discards
// the request.

// jsonObject returns a nested object value.
func jsonObject(m map[string]any, key string) map[string]any {
	o, _ := m[key].(map[string]any)
	return o
}

// jsonString returns a string value, "" when absent.
func jsonString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// jsonNumber returns a numeric value and whether the key held one.
func jsonNumber(m map[string]any, key string) (float64, bool) {
	n, ok := m[key].(float64)
	return n, ok
}

// HandleSystemExclusive processes one SysEx frame from the host, including
// the start/end markers. Malformed, foreign, and stale requests are
// discarded without a reply and without an error; only transport and
// serialization failures surface.
func (d *Device) HandleSystemExclusive(frame []byte) error {
	if len(frame) < sysex.MinRequestSize {
		return nil
	}

	if frame[1] != sysex.VendorPrivate {
		return nil
	}

	// Cheap pre-filter, handle only JSON messages.
	if frame[2] != '{' || frame[len(frame)-2] != '}' {
		return nil
	}

	var doc map[string]any
	if err := json.Unmarshal(frame[2:len(frame)-1], &doc); err != nil {
		return nil
	}

	// Only handle requests for our interface.
	request := jsonObject(doc, Namespace)
	if request == nil {
		return nil
	}

	// Requests and replies carry the device's current boot token. It
	// prevents hosts from acting on state from a different device, or
	// from a previous boot cycle of this device.
	if token, ok := jsonNumber(request, "token"); ok && uint32(token) != d.token {
		return nil
	}

	switch jsonString(request, "method") {
	case "getAll":
		return d.sendReply()

	case "eraseConfiguration":
		// Wipe the entire persistent region. The device disappears,
		// there is no reply.
		if err := d.store.erase(); err != nil {
			return err
		}
		d.resetter.Reset()
		return nil

	case "switchChannel":
		if channel, ok := jsonNumber(request, "channel"); ok {
			d.hooks.HandleSwitchChannel(int(channel))
		}
		return d.sendReply()

	case "reboot":
		if ports, ok := jsonNumber(request, "ports"); ok {
			d.boot.Set(uint8(ports))
		}
		d.resetter.Reset()
		return nil

	case "writeConfiguration":
		return d.handleWriteConfiguration(request)

	case "writeFirmware":
		return d.handleWriteFirmware(request)
	}

	// Unknown methods are silently ignored.
	return nil
}

// handleWriteConfiguration validates and applies the request into the live
// state and the persistent record, then replies with the now-current
// configuration. Out-of-range values are dropped field by field, the rest
// of the request still applies.
func (d *Device) handleWriteConfiguration(request map[string]any) error {
	// The data is enclosed in an object to prevent name clashes with the
	// calling convention.
	config := jsonObject(request, "configuration")
	if config != nil {
		if usb := jsonObject(config, "usb"); usb != nil {
			if name, ok := usb["name"].(string); ok {
				if len(name) > 1 && len(name) < configNameSize {
					d.name = name
					d.record.name = name

				} else {
					d.name = ""
					d.record.name = ""
				}
			}

			if vid, ok := jsonNumber(usb, "vid"); ok {
				d.record.vid = uint16(vid)
			}

			if pid, ok := jsonNumber(usb, "pid"); ok {
				d.record.pid = uint16(pid)
			}

			if ports, ok := jsonNumber(usb, "ports"); ok {
				if ports >= 1 && ports <= 16 {
					d.record.ports = uint8(ports)
					if d.record.ports > 1 {
						d.ports.Configured = d.record.ports

					} else {
						d.ports.Configured = 1
					}
				}
			}
		}

		// Device-specific section.
		d.hooks.ImportConfiguration(config)

		if err := d.writeConfiguration(); err != nil {
			return err
		}
	}

	// Reply with the updated configuration.
	return d.sendReply()
}
