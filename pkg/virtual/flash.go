// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package virtual

import "fmt"

// Flash emulates the firmware staging area: block-aligned writes into a
// secondary region, a bootloader copy step, and activation which swaps
// the staged image in as the active one.
type Flash struct {
	blockSize int
	staged    []byte
	active    []byte

	bootloaderCopied bool
	activated        bool
}

// NewFlash creates a flash driver with the given block size and staging
// capacity, holding the given active image.
func NewFlash(blockSize, capacity int, active []byte) *Flash {
	f := &Flash{
		blockSize: blockSize,
		staged:    make([]byte, capacity),
		active:    append([]byte(nil), active...),
	}

	for i := range f.staged {
		f.staged[i] = 0xff
	}

	return f
}

// BlockSize returns the atomic program/erase unit.
func (f *Flash) BlockSize() int {
	return f.blockSize
}

// WriteBlock programs one block of the staged image.
func (f *Flash) WriteBlock(offset int, block []byte) error {
	if len(block) != f.blockSize {
		return fmt.Errorf("virtual: block of %d bytes, expected %d", len(block), f.blockSize)
	}

	if offset < 0 || offset%f.blockSize != 0 || offset+f.blockSize > len(f.staged) {
		return fmt.Errorf("virtual: invalid block offset %d", offset)
	}

	copy(f.staged[offset:], block)
	return nil
}

// ReadStaged returns the first length bytes of the staged image.
func (f *Flash) ReadStaged(length int) ([]byte, error) {
	if length < 0 || length > len(f.staged) {
		return nil, fmt.Errorf("virtual: staged read of %d bytes out of range", length)
	}

	return append([]byte(nil), f.staged[:length]...), nil
}

// CopyBootloader records the bootloader refresh step.
func (f *Flash) CopyBootloader() error {
	f.bootloaderCopied = true
	return nil
}

// Activate commits the staged image as the active one.
func (f *Flash) Activate() error {
	if !f.bootloaderCopied {
		return fmt.Errorf("virtual: activate without bootloader copy")
	}

	f.active = append([]byte(nil), f.staged...)
	f.activated = true
	return nil
}

// Activated reports whether the staged image was committed.
func (f *Flash) Activated() bool {
	return f.activated
}

// Active returns the currently active image.
func (f *Flash) Active() []byte {
	return f.active
}
