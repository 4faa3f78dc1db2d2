// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package device_test

import (
	"fmt"
	"testing"

	"github.com/versioduo/V2Device/pkg/device"
	"github.com/versioduo/V2Device/pkg/sysex"
	"github.com/versioduo/V2Device/pkg/virtual"
)

type testHooks struct {
	device.NoopHooks

	channel  int
	switched bool
	imported map[string]any
}

func (h *testHooks) HandleSwitchChannel(channel int) {
	h.channel = channel
	h.switched = true
}

func (h *testHooks) ImportConfiguration(config map[string]any) {
	h.imported = config
}

func (h *testHooks) ExportInput(json map[string]any) {
	json["channel"] = 1
}

func TestGetAll(t *testing.T) {
	board := virtual.NewBoard()
	d := startDevice(t, testOptions(board))

	request(t, d, `{"com.versioduo.device":{"method":"getAll"}}`)
	reply := lastReply(t, board.Transport)

	if token := reply["token"]; token != float64(d.Token()) {
		t.Errorf("expected token %d, got %v", d.Token(), token)
	}

	if serial := field(t, reply, "metadata", "serial"); serial != "012d87c34e1250d05555ffee00c0ffee" {
		t.Errorf("unexpected serial: %v", serial)
	}

	if version := field(t, reply, "metadata", "version"); version != float64(815) {
		t.Errorf("unexpected version: %v", version)
	}

	if board := field(t, reply, "system", "hardware", "board"); board != "versioduo:samd:itsybitsy" {
		t.Errorf("unexpected bootloader board: %v", board)
	}

	if hash := field(t, reply, "system", "firmware", "hash"); hash != d.FirmwareHash() {
		t.Errorf("unexpected firmware hash: %v", hash)
	}

	if used := field(t, reply, "system", "hardware", "eeprom", "used"); used != false {
		t.Error("erased storage must report unused")
	}

	if label := field(t, reply, "configuration", "usb", "#name"); label != "Device Name" {
		t.Errorf("expected human readable field label, got %v", label)
	}
}

func TestGetAll_Statistics(t *testing.T) {
	board := virtual.NewBoard()
	d := startDevice(t, testOptions(board))

	stats := d.Statistics()
	stats.Input.Packet = 17
	stats.Input.Note = 3
	stats.Output.Packet = 4
	stats.Output.System.Exclusive = 2

	request(t, d, `{"com.versioduo.device":{"method":"getAll"}}`)
	reply := lastReply(t, board.Transport)

	if note := field(t, reply, "system", "midi", "input", "note"); note != float64(3) {
		t.Errorf("expected input note counter, got %v", note)
	}

	if _, ok := field(t, reply, "system", "midi", "input").(map[string]any)["noteOff"]; ok {
		t.Error("zero counters must be omitted")
	}

	if excl := field(t, reply, "system", "midi", "output", "system", "exclusive"); excl != float64(2) {
		t.Errorf("expected output sysex counter, got %v", excl)
	}
}

func TestSilentDiscard(t *testing.T) {
	board := virtual.NewBoard()
	d := startDevice(t, testOptions(board))

	frame := func(b ...byte) []byte { return b }

	tests := []struct {
		name  string
		frame []byte
	}{
		{"too short", sysex.Frame([]byte(`{"a":1}`))},
		{"wrong vendor ID", append(frame(sysex.Start, 0x43), append([]byte(`{"com.versioduo.device":{"method":"getAll"}}`), sysex.End)...)},
		{"not JSON", sysex.Frame([]byte(`this is not a JSON request....`))},
		{"no JSON braces", sysex.Frame([]byte(`"com.versioduo.device":{"x":1}`))},
		{"malformed JSON", sysex.Frame([]byte(`{"com.versioduo.device":{"method":}`))},
		{"foreign namespace", sysex.Frame([]byte(`{"com.example.other":{"method":"getAll"}}`))},
		{"unknown method", sysex.Frame([]byte(`{"com.versioduo.device":{"method":"selfDestruct"}}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := d.HandleSystemExclusive(tt.frame); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(board.Transport.Frames) != 0 {
				t.Error("invalid input must not produce a reply")
			}
		})
	}
}

func TestStaleToken(t *testing.T) {
	board := virtual.NewBoard()
	d := startDevice(t, testOptions(board))

	methods := []string{"getAll", "eraseConfiguration", "switchChannel", "reboot", "writeConfiguration", "writeFirmware"}
	for _, method := range methods {
		t.Run(method, func(t *testing.T) {
			request(t, d, fmt.Sprintf(
				`{"com.versioduo.device":{"token":%d,"method":%q}}`, d.Token()+1, method))

			if len(board.Transport.Frames) != 0 {
				t.Error("stale token must not produce a reply")
			}
			if board.Resetter.Requests != 0 {
				t.Error("stale token must not mutate device state")
			}
		})
	}
}

func TestSwitchChannel(t *testing.T) {
	board := virtual.NewBoard()
	hooks := &testHooks{}

	opts := testOptions(board)
	opts.Hooks = hooks
	d := startDevice(t, opts)

	request(t, d, fmt.Sprintf(
		`{"com.versioduo.device":{"token":%d,"method":"switchChannel","channel":7}}`, d.Token()))

	if !hooks.switched || hooks.channel != 7 {
		t.Errorf("expected channel switch to 7, got %+v", hooks)
	}

	reply := lastReply(t, board.Transport)
	if reply["token"] != float64(d.Token()) {
		t.Error("switchChannel must reply with the full state")
	}

	// Without a channel value the hook is not called, the reply is.
	hooks.switched = false
	request(t, d, fmt.Sprintf(
		`{"com.versioduo.device":{"token":%d,"method":"switchChannel"}}`, d.Token()))

	if hooks.switched {
		t.Error("hook called without a channel value")
	}
	lastReply(t, board.Transport)
}

func TestEraseConfiguration(t *testing.T) {
	board := virtual.NewBoard()
	d := startDevice(t, testOptions(board))

	request(t, d, fmt.Sprintf(
		`{"com.versioduo.device":{"token":%d,"method":"writeConfiguration",`+
			`"configuration":{"usb":{"name":"Foo","ports":4}}}}`, d.Token()))
	board.Transport.Drain()

	request(t, d, fmt.Sprintf(
		`{"com.versioduo.device":{"token":%d,"method":"eraseConfiguration"}}`, d.Token()))

	if len(board.Transport.Frames) != 0 {
		t.Error("eraseConfiguration must not reply, the device disappears")
	}
	if board.Resetter.Requests != 1 {
		t.Fatalf("expected a reset, got %d", board.Resetter.Requests)
	}

	next := startDevice(t, testOptions(board))
	if next.Name() != "V2 Test" || next.Ports().Configured != 1 {
		t.Errorf("expected defaults after erase, got %q/%+v", next.Name(), next.Ports())
	}
}

func TestWriteConfiguration_ImportHook(t *testing.T) {
	board := virtual.NewBoard()
	hooks := &testHooks{}

	opts := testOptions(board)
	opts.Hooks = hooks
	d := startDevice(t, opts)

	request(t, d, fmt.Sprintf(
		`{"com.versioduo.device":{"token":%d,"method":"writeConfiguration",`+
			`"configuration":{"calibration":{"offset":3}}}}`, d.Token()))
	lastReply(t, board.Transport)

	if hooks.imported == nil {
		t.Fatal("expected the device-specific section to reach the hook")
	}
	if _, ok := hooks.imported["calibration"]; !ok {
		t.Errorf("hook received %v", hooks.imported)
	}
}

func TestReply_InputOutputSections(t *testing.T) {
	board := virtual.NewBoard()

	// Default hooks export nothing, the sections are omitted.
	d := startDevice(t, testOptions(board))
	request(t, d, `{"com.versioduo.device":{"method":"getAll"}}`)
	reply := lastReply(t, board.Transport)

	if _, ok := reply["input"]; ok {
		t.Error("empty input section must be omitted")
	}
	if _, ok := reply["output"]; ok {
		t.Error("empty output section must be omitted")
	}

	// A device describing its input gets the section.
	board = virtual.NewBoard()
	opts := testOptions(board)
	opts.Hooks = &testHooks{}
	d = startDevice(t, opts)

	request(t, d, `{"com.versioduo.device":{"method":"getAll"}}`)
	reply = lastReply(t, board.Transport)

	if ch := field(t, reply, "input", "channel"); ch != float64(1) {
		t.Errorf("expected input description, got %v", ch)
	}
}
