// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

// Package virtual provides in-memory implementations of the device
// collaborator interfaces: EEPROM, flash with a staged image region,
// boot-retained memory, hardware description, and a loopback transport.
// They back the test suite and the 'v2ctl simulate' command.
package virtual

import "fmt"

// EEPROM is a persistent byte region held in memory. A new EEPROM reads
// as erased, all one-bits.
type EEPROM struct {
	data []byte
}

// NewEEPROM creates an erased EEPROM of the given size.
func NewEEPROM(size int) *EEPROM {
	e := &EEPROM{data: make([]byte, size)}
	e.Erase()
	return e
}

// Size returns the region size in bytes.
func (e *EEPROM) Size() int {
	return len(e.data)
}

// Read fills buf from the given offset.
func (e *EEPROM) Read(offset int, buf []byte) error {
	if offset < 0 || offset+len(buf) > len(e.data) {
		return fmt.Errorf("virtual: eeprom read of %d bytes at %d out of range", len(buf), offset)
	}

	copy(buf, e.data[offset:])
	return nil
}

// Write stores data at the given offset.
func (e *EEPROM) Write(offset int, data []byte) error {
	if offset < 0 || offset+len(data) > len(e.data) {
		return fmt.Errorf("virtual: eeprom write of %d bytes at %d out of range", len(data), offset)
	}

	copy(e.data[offset:], data)
	return nil
}

// Erase wipes the region to 0xff, like a chip erase.
func (e *EEPROM) Erase() error {
	for i := range e.data {
		e.data[i] = 0xff
	}

	return nil
}
