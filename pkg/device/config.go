// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Persistent record layout, little-endian, at storage offset 0:
//
//	header  magic, size of the valid record bytes
//	name    custom USB device name, 31 usable bytes + terminator
//	vid/pid custom USB IDs, 0 == use the compiled-in defaults
//	ports   number of MIDI ports, 0/1 == not configured
//	local   device-specific sub-record magic and size
//
// The device-specific payload follows immediately at offset header.size.
const (
	configHeaderSize = 8
	configNameSize   = 32
	configRecordSize = configHeaderSize + configNameSize + 2 + 2 + 1 + 8
)

// configRecord is the decoded common section of the persistent record.
type configRecord struct {
	size       uint32
	name       string
	vid        uint16
	pid        uint16
	ports      uint8
	localMagic uint32
	localSize  uint32
}

// configStore owns the persistent configuration region. No other component
// touches the storage directly.
type configStore struct {
	storage Storage
}

// read validates and decodes the common record. A failed magic or size
// check means unformatted or corrupt storage; the caller falls back to
// defaults, this is never an error.
func (c *configStore) read() (configRecord, bool) {
	var rec configRecord

	buf := make([]byte, configRecordSize)
	if err := c.storage.Read(0, buf); err != nil {
		return rec, false
	}

	// Check our magic, all bytes are 0xff after chip erase.
	if binary.LittleEndian.Uint32(buf[0:]) != configMagic {
		return rec, false
	}

	rec.size = binary.LittleEndian.Uint32(buf[4:])
	if rec.size <= configHeaderSize || rec.size > configRecordSize {
		return rec, false
	}

	name := buf[configHeaderSize : configHeaderSize+configNameSize]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	rec.name = string(name)

	rec.vid = binary.LittleEndian.Uint16(buf[40:])
	rec.pid = binary.LittleEndian.Uint16(buf[42:])
	rec.ports = buf[44]
	rec.localMagic = binary.LittleEndian.Uint32(buf[45:])
	rec.localSize = binary.LittleEndian.Uint32(buf[49:])
	return rec, true
}

// readLocal returns the device-specific payload, but only if the stored
// sub-record matches the declared magic and fits the declared capacity.
func (c *configStore) readLocal(rec configRecord, magic uint32, capacity int) []byte {
	if rec.localMagic != magic || rec.localSize == 0 {
		return nil
	}

	if int(rec.localSize) > capacity {
		return nil
	}

	blob := make([]byte, rec.localSize)
	if err := c.storage.Read(int(rec.size), blob); err != nil {
		return nil
	}

	return blob
}

// write serializes the full record including the device-specific payload
// and stores it contiguously in a single pass. There is no partial write.
func (c *configStore) write(rec configRecord, local []byte) error {
	buf := make([]byte, configRecordSize, configRecordSize+len(local))
	binary.LittleEndian.PutUint32(buf[0:], configMagic)
	binary.LittleEndian.PutUint32(buf[4:], configRecordSize)

	name := []byte(rec.name)
	if len(name) > configNameSize-1 {
		name = name[:configNameSize-1]
	}
	copy(buf[configHeaderSize:], name)

	binary.LittleEndian.PutUint16(buf[40:], rec.vid)
	binary.LittleEndian.PutUint16(buf[42:], rec.pid)
	buf[44] = rec.ports
	binary.LittleEndian.PutUint32(buf[45:], rec.localMagic)
	binary.LittleEndian.PutUint32(buf[49:], uint32(len(local)))

	buf = append(buf, local...)
	if len(buf) > c.storage.Size() {
		return fmt.Errorf("device: record of %d bytes exceeds storage size %d", len(buf), c.storage.Size())
	}

	return c.storage.Write(0, buf)
}

// erase wipes the entire persistent configuration region.
func (c *configStore) erase() error {
	return c.storage.Erase()
}
