// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"time"
)

// The firmware update is a sequence of block-write requests, one block per
// message, acknowledged with a status reply as flow control. The message
// carrying the image hash is the last one; a matching hash commits the
// staged image and resets into it, a mismatch leaves the old image active
// and the host restarts the update from the beginning.

const (
	firmwareDrainTimeout = 100 * time.Millisecond
	firmwareResetDelay   = 100 * time.Millisecond
)

func (d *Device) handleWriteFirmware(request map[string]any) error {
	// The data is enclosed in an object to prevent name clashes with the
	// calling convention.
	firmware := jsonObject(request, "firmware")
	if firmware == nil {
		return nil
	}

	offset, _ := jsonNumber(firmware, "offset")
	if offset < 0 || int(offset)%d.flash.BlockSize() != 0 {
		return d.sendFirmwareStatus("invalidOffset")
	}

	// Malformed payload data is discarded like any malformed request.
	block, err := base64.StdEncoding.DecodeString(jsonString(firmware, "data"))
	if err != nil {
		return nil
	}

	// Short blocks are padded with the erased-byte pattern; every write
	// covers exactly one physical block.
	padded := make([]byte, d.flash.BlockSize())
	for i := range padded {
		padded[i] = 0xff
	}
	copy(padded, block)

	if err := d.flash.WriteBlock(int(offset), padded); err != nil {
		return err
	}

	// The final message contains the hash over the entire image.
	hash := jsonString(firmware, "hash")
	if hash == "" {
		return d.sendFirmwareStatus("success")
	}

	if err := d.flash.CopyBootloader(); err != nil {
		return err
	}

	image, err := d.flash.ReadStaged(int(offset) + len(block))
	if err != nil {
		return err
	}

	sum := sha1.Sum(image)
	if hex.EncodeToString(sum[:]) != hash {
		return d.sendFirmwareStatus("hashMismatch")
	}

	if err := d.sendFirmwareStatus("success"); err != nil {
		return err
	}

	// Flush queued messages; the servicing loop is not called again. A
	// stuck host never prevents the reset, the drain self-terminates.
	deadline := time.Now().Add(firmwareDrainTimeout)
	for d.transport.Pending() && time.Now().Before(deadline) {
		d.sleep(time.Millisecond)
	}

	// Give the host time to process the reply before the USB device
	// disconnects.
	d.sleep(firmwareResetDelay)

	if err := d.flash.Activate(); err != nil {
		return err
	}

	d.resetter.Reset()
	return nil
}
