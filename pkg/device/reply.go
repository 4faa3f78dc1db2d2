// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/versioduo/V2Device/pkg/sysex"
)

// serial formats the hardware-unique word sequence as the USB serial
// number string.
func (d *Device) serial() string {
	var b bytes.Buffer

	for _, word := range d.hardware.SerialWords() {
		fmt.Fprintf(&b, "%08x", word)
	}

	return b.String()
}

// board recovers the board identifier the bootloader describes about
// itself. Four words in front of the firmware image hold pointers, the
// first one leads to a NUL-led JSON blob.
func (d *Device) board() (string, error) {
	blob, err := d.hardware.BootloaderInfo()
	if err != nil {
		return "", err
	}

	// Skip the leading NUL which separates the blob from the code.
	if i := bytes.IndexByte(blob, '{'); i >= 0 {
		blob = blob[i:]
	}

	var doc map[string]any
	if err := json.Unmarshal(blob, &doc); err != nil {
		return "", fmt.Errorf("device: bootloader metadata: %w", err)
	}

	bootloader := jsonObject(doc, "com.versioduo.bootloader")
	if bootloader == nil {
		return "", fmt.Errorf("device: bootloader metadata: no interface section")
	}

	board := jsonString(bootloader, "board")
	if board == "" {
		return "", fmt.Errorf("device: bootloader metadata: no board field")
	}

	return board, nil
}

// buildReply assembles the full state document.
func (d *Device) buildReply() map[string]any {
	reply := map[string]any{"token": d.token}

	metadata := map[string]any{
		"serial":  d.serial(),
		"version": d.metadata.Version,
	}

	if d.identity.Product != "" {
		metadata["product"] = d.identity.Product
	}

	if d.identity.Description != "" {
		metadata["description"] = d.identity.Description
	}

	if d.identity.Vendor != "" {
		metadata["vendor"] = d.identity.Vendor
	}

	if d.identity.Home != "" {
		metadata["home"] = d.identity.Home
	}

	d.hooks.ExportMetadata(metadata)
	reply["metadata"] = metadata

	system := map[string]any{}
	if d.name != "" {
		system["name"] = d.name
	}

	system["boot"] = map[string]any{
		"uptime": uint32(time.Since(d.started) / time.Second),
		"id":     d.token,
	}

	firmware := map[string]any{
		"id":    d.metadata.ID,
		"board": d.metadata.Board,
		"hash":  d.firmwareHash,
		"start": d.hardware.FirmwareStart(),
		"size":  len(d.hardware.FirmwareImage()),
	}

	if d.download != "" {
		firmware["download"] = d.download
	}

	system["firmware"] = firmware

	hardware := map[string]any{}
	if board, err := d.board(); err == nil {
		hardware["board"] = board
	}

	ramSize, ramFree := d.hardware.RAM()
	hardware["ram"] = map[string]any{"size": ramSize, "free": ramFree}
	hardware["flash"] = map[string]any{"size": d.hardware.FlashSize()}

	_, used := d.store.read()
	hardware["eeprom"] = map[string]any{
		"size": d.store.storage.Size(),
		"used": used,
	}

	vid, pid := d.USBIDs()
	hardware["usb"] = map[string]any{
		"vid": vid,
		"pid": pid,
		"ports": map[string]any{
			"configured": d.ports.Configured,
			"current":    d.ports.Current,
		},
	}

	system["hardware"] = hardware

	input := map[string]any{}
	d.statistics.Input.export(input)
	output := map[string]any{}
	d.statistics.Output.export(output)
	system["midi"] = map[string]any{"input": input, "output": output}

	d.hooks.ExportSystem(system)
	reply["system"] = system

	settings := d.hooks.ExportSettings()
	if settings == nil {
		settings = []any{}
	}
	reply["settings"] = settings

	config := map[string]any{
		"#usb": "USB Settings",
	}

	usb := map[string]any{
		"#name":  "Device Name",
		"name":   d.record.name,
		"#vid":   "USB Vendor ID",
		"vid":    d.record.vid,
		"#pid":   "USB Product ID",
		"pid":    d.record.pid,
		"#ports": "Number of MIDI ports",
		"ports":  d.record.ports,
	}
	config["usb"] = usb

	d.hooks.ExportConfiguration(config)
	reply["configuration"] = config

	in := map[string]any{}
	d.hooks.ExportInput(in)
	if len(in) > 0 {
		reply["input"] = in
	}

	out := map[string]any{}
	d.hooks.ExportOutput(out)
	if len(out) > 0 {
		reply["output"] = out
	}

	return reply
}

// send serializes a reply document, escapes it to the 7 bit stream and
// hands the framed message to the transport. A document which does not
// fit the maximum SysEx size fails, it is never truncated.
func (d *Device) send(doc map[string]any) error {
	raw, err := json.Marshal(map[string]any{Namespace: doc})
	if err != nil {
		return fmt.Errorf("device: serialize reply: %w", err)
	}

	escaped, err := sysex.Escape(raw, sysex.MaxMessageSize-3)
	if err != nil {
		return fmt.Errorf("device: escape reply: %w", err)
	}

	return d.transport.Send(sysex.Frame(escaped))
}

// sendReply sends the full state document.
func (d *Device) sendReply() error {
	return d.send(d.buildReply())
}

// sendFirmwareStatus reports one firmware update step to the host.
func (d *Device) sendFirmwareStatus(status string) error {
	return d.send(map[string]any{
		"token":    d.token,
		"firmware": map[string]any{"status": status},
	})
}
