// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package device_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/versioduo/V2Device/pkg/device"
	"github.com/versioduo/V2Device/pkg/sysex"
	"github.com/versioduo/V2Device/pkg/virtual"
)

func testOptions(board *virtual.Board) device.Options {
	return device.Options{
		Metadata: device.Metadata{
			ID:      "com.versioduo.test",
			Version: 815,
			Board:   "versioduo:samd:itsybitsy",
		},
		Identity: device.Identity{
			Vendor:      "Versio Duo",
			Product:     "V2 Test",
			Description: "Virtual test device",
			Home:        "https://versioduo.com",
		},
		Download:  "https://versioduo.com/download",
		VID:       0x6666,
		PID:       0xe500,
		Hooks:     nil,
		Storage:   board.EEPROM,
		Flash:     board.Flash,
		Hardware:  board.Hardware,
		BootCell:  board.Cell,
		Transport: board.Transport,
		Resetter:  board.Resetter,
	}
}

func startDevice(t *testing.T, opts device.Options) *device.Device {
	t.Helper()

	d, err := device.New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	return d
}

// request frames a JSON document and hands it to the device.
func request(t *testing.T, d *device.Device, body string) {
	t.Helper()

	if err := d.HandleSystemExclusive(sysex.Frame([]byte(body))); err != nil {
		t.Fatalf("HandleSystemExclusive: %v", err)
	}
}

// parseReply decodes one reply frame.
func parseReply(t *testing.T, frame []byte) map[string]any {
	t.Helper()

	if frame[0] != sysex.Start || frame[1] != sysex.VendorPrivate || frame[len(frame)-1] != sysex.End {
		t.Fatalf("malformed reply frame: % X", frame[:3])
	}

	var doc map[string]any
	if err := json.Unmarshal(frame[2:len(frame)-1], &doc); err != nil {
		t.Fatalf("reply is not valid JSON: %v", err)
	}

	reply, ok := doc[device.Namespace].(map[string]any)
	if !ok {
		t.Fatalf("reply lacks the %s namespace", device.Namespace)
	}

	return reply
}

// lastReply drains the transport and decodes the last reply document.
func lastReply(t *testing.T, transport *virtual.Transport) map[string]any {
	t.Helper()

	frames := transport.Drain()
	if len(frames) == 0 {
		t.Fatal("expected a reply, got none")
	}

	return parseReply(t, frames[len(frames)-1])
}

func field(t *testing.T, m map[string]any, path ...string) any {
	t.Helper()

	var v any = m
	for _, key := range path {
		obj, ok := v.(map[string]any)
		if !ok {
			t.Fatalf("no object at %v", path)
		}
		v = obj[key]
	}

	return v
}

func TestStart_Defaults(t *testing.T) {
	board := virtual.NewBoard()
	d := startDevice(t, testOptions(board))

	if d.Name() != "V2 Test" {
		t.Errorf("expected product name, got %q", d.Name())
	}

	ports := d.Ports()
	if ports.Configured != 1 || ports.Current != 1 || ports.Reboot != 0 {
		t.Errorf("unexpected default ports: %+v", ports)
	}

	vid, pid := d.USBIDs()
	if vid != 0x6666 || pid != 0xe500 {
		t.Errorf("unexpected USB IDs: %04x:%04x", vid, pid)
	}

	if len(d.FirmwareHash()) != 40 {
		t.Errorf("expected SHA-1 hex digest, got %q", d.FirmwareHash())
	}
}

func TestUSBVersionBCD(t *testing.T) {
	tests := []struct {
		version uint32
		bcd     uint16
	}{
		{1, 0x0001},
		{815, 0x0815},
		{42, 0x0042},
		{9999, 0x9999},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.version), func(t *testing.T) {
			board := virtual.NewBoard()
			opts := testOptions(board)
			opts.Metadata.Version = tt.version

			d := startDevice(t, opts)
			if got := d.USBVersionBCD(); got != tt.bcd {
				t.Errorf("expected 0x%04x, got 0x%04x", tt.bcd, got)
			}
		})
	}
}

func TestConfiguration_RoundTrip(t *testing.T) {
	board := virtual.NewBoard()
	d := startDevice(t, testOptions(board))

	request(t, d, fmt.Sprintf(
		`{"com.versioduo.device":{"token":%d,"method":"writeConfiguration",`+
			`"configuration":{"usb":{"name":"Foo","ports":4}}}}`, d.Token()))

	reply := lastReply(t, board.Transport)
	if name := field(t, reply, "configuration", "usb", "name"); name != "Foo" {
		t.Errorf("reply name: expected Foo, got %v", name)
	}
	if ports := field(t, reply, "configuration", "usb", "ports"); ports != float64(4) {
		t.Errorf("reply ports: expected 4, got %v", ports)
	}

	// A new boot cycle on the same storage picks up the record.
	next := startDevice(t, testOptions(board))
	if next.Name() != "Foo" {
		t.Errorf("expected stored name, got %q", next.Name())
	}

	ports := next.Ports()
	if ports.Configured != 4 || ports.Current != 4 {
		t.Errorf("expected 4 ports, got %+v", ports)
	}

	// The product ID depends on the current port count.
	_, pid := next.USBIDs()
	if pid != 0xe500+3 {
		t.Errorf("expected pid offset by ports-1, got %04x", pid)
	}
}

func TestConfiguration_UnicodeName(t *testing.T) {
	board := virtual.NewBoard()
	d := startDevice(t, testOptions(board))

	request(t, d, fmt.Sprintf(
		`{"com.versioduo.device":{"token":%d,"method":"writeConfiguration",`+
			`"configuration":{"usb":{"name":"Grüße"}}}}`, d.Token()))

	frames := board.Transport.Drain()
	if len(frames) == 0 {
		t.Fatal("expected a reply, got none")
	}

	// The reply carries the name escaped, the frame stays 7 bit safe.
	frame := frames[len(frames)-1]
	for _, b := range frame[1 : len(frame)-1] {
		if b > 0x7f {
			t.Fatalf("reply contains invalid data byte 0x%02x", b)
		}
	}

	// Standard JSON unescaping recovers the original name.
	reply := parseReply(t, frame)
	if name := field(t, reply, "configuration", "usb", "name"); name != "Grüße" {
		t.Errorf("reply name: expected Grüße, got %v", name)
	}

	// The record stores the raw UTF-8 bytes.
	next := startDevice(t, testOptions(board))
	if next.Name() != "Grüße" {
		t.Errorf("expected stored name, got %q", next.Name())
	}
}

func TestConfiguration_ErasedStorage(t *testing.T) {
	board := virtual.NewBoard()
	d := startDevice(t, testOptions(board))

	if d.Name() != "V2 Test" || d.Ports().Configured != 1 {
		t.Errorf("erased storage must yield defaults, got %q/%+v", d.Name(), d.Ports())
	}
}

func TestConfiguration_CorruptRecord(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(e *virtual.EEPROM)
	}{
		{
			"bad magic",
			func(e *virtual.EEPROM) { _ = e.Write(0, []byte{0x00}) },
		},
		{
			// The size field follows the magic at offset 4.
			"oversized declared size",
			func(e *virtual.EEPROM) { _ = e.Write(4, []byte{0xff, 0xff, 0x00, 0x00}) },
		},
		{
			"header-only declared size",
			func(e *virtual.EEPROM) { _ = e.Write(4, []byte{0x08, 0x00, 0x00, 0x00}) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := virtual.NewBoard()
			d := startDevice(t, testOptions(board))
			request(t, d, fmt.Sprintf(
				`{"com.versioduo.device":{"token":%d,"method":"writeConfiguration",`+
					`"configuration":{"usb":{"name":"Foo","ports":4}}}}`, d.Token()))
			board.Transport.Drain()

			tt.corrupt(board.EEPROM)

			next := startDevice(t, testOptions(board))
			if next.Name() != "V2 Test" || next.Ports().Configured != 1 {
				t.Errorf("corrupt record must yield defaults, got %q/%+v", next.Name(), next.Ports())
			}
		})
	}
}

func TestConfiguration_NameBounds(t *testing.T) {
	tests := []struct {
		name     string
		request  string
		expected string
	}{
		{"minimum length", "ab", "ab"},
		{"maximum length", "abcdefghijklmnopqrstuvwxyz01234", "abcdefghijklmnopqrstuvwxyz01234"},
		{"too short", "a", "V2 Test"},
		{"too long", "abcdefghijklmnopqrstuvwxyz012345", "V2 Test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := virtual.NewBoard()
			d := startDevice(t, testOptions(board))
			request(t, d, fmt.Sprintf(
				`{"com.versioduo.device":{"token":%d,"method":"writeConfiguration",`+
					`"configuration":{"usb":{"name":%q}}}}`, d.Token(), tt.request))
			board.Transport.Drain()

			if d.Name() != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, d.Name())
			}
		})
	}
}

func TestConfiguration_PortsBounds(t *testing.T) {
	for _, ports := range []int{0, 17, 200} {
		t.Run(fmt.Sprintf("%d", ports), func(t *testing.T) {
			board := virtual.NewBoard()
			d := startDevice(t, testOptions(board))
			request(t, d, fmt.Sprintf(
				`{"com.versioduo.device":{"token":%d,"method":"writeConfiguration",`+
					`"configuration":{"usb":{"ports":%d}}}}`, d.Token(), ports))
			board.Transport.Drain()

			if d.Ports().Configured != 1 {
				t.Errorf("out-of-range port count must be ignored, got %+v", d.Ports())
			}
		})
	}
}

func TestConfiguration_LocalBlob(t *testing.T) {
	board := virtual.NewBoard()

	opts := testOptions(board)
	opts.Local = device.LocalConfig{Magic: 0xe500, Data: make([]byte, 8)}
	d := startDevice(t, opts)

	copy(d.Local(), []byte{1, 2, 3, 4, 5, 6, 7, 8})
	request(t, d, fmt.Sprintf(
		`{"com.versioduo.device":{"token":%d,"method":"writeConfiguration","configuration":{}}}`,
		d.Token()))
	board.Transport.Drain()

	t.Run("same magic", func(t *testing.T) {
		opts := testOptions(board)
		opts.Local = device.LocalConfig{Magic: 0xe500, Data: make([]byte, 8)}

		next := startDevice(t, opts)
		if next.Local()[0] != 1 || next.Local()[7] != 8 {
			t.Errorf("expected restored payload, got %v", next.Local())
		}
	})

	t.Run("different magic", func(t *testing.T) {
		opts := testOptions(board)
		opts.Local = device.LocalConfig{Magic: 0xbeef, Data: make([]byte, 8)}

		next := startDevice(t, opts)
		if next.Local()[0] != 0 {
			t.Errorf("foreign payload must not be copied, got %v", next.Local())
		}
	})

	t.Run("payload exceeds capacity", func(t *testing.T) {
		opts := testOptions(board)
		opts.Local = device.LocalConfig{Magic: 0xe500, Data: make([]byte, 4)}

		next := startDevice(t, opts)
		if next.Local()[0] != 0 {
			t.Errorf("oversized payload must not be copied, got %v", next.Local())
		}
	})
}
