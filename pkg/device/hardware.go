// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package device

// Storage is the persistent byte-addressable configuration region, an
// EEPROM or an emulated flash page. Freshly erased storage reads as all
// one-bits.
type Storage interface {
	Size() int

	// Read fills buf from the given offset.
	Read(offset int, buf []byte) error

	// Write stores data at the given offset.
	Write(offset int, data []byte) error

	// Erase wipes the entire region to 0xff.
	Erase() error
}

// Flash stages a new firmware image in the secondary region and activates
// it. All writes are aligned to the driver's block size.
type Flash interface {
	// BlockSize is the unit the driver can erase/program atomically.
	BlockSize() int

	// WriteBlock programs exactly one block at the given byte offset of
	// the staged image.
	WriteBlock(offset int, block []byte) error

	// ReadStaged returns the first length bytes of the staged image.
	ReadStaged(length int) ([]byte, error)

	// CopyBootloader duplicates/refreshes the bootloader region of the
	// staged image. Required once before activation.
	CopyBootloader() error

	// Activate commits the staged image. The device boots into it on the
	// next reset.
	Activate() error
}

// Hardware describes the running system: the active firmware image, memory
// sizing, the hardware-unique serial words, and the bootloader metadata
// located through the four words in front of the firmware image.
type Hardware interface {
	// FirmwareStart is the load address of the active image.
	FirmwareStart() uint32

	// FirmwareImage returns the bytes of the active image.
	FirmwareImage() []byte

	// SerialWords returns the hardware-unique word sequence which forms
	// the USB serial number.
	SerialWords() []uint32

	// RAM returns total and free RAM in bytes.
	RAM() (size, free int)

	// FlashSize is the total flash size in bytes.
	FlashSize() int

	// BootloaderInfo returns the NUL-led JSON blob the bootloader stores
	// behind the pointer table preceding the firmware image.
	BootloaderInfo() ([]byte, error)
}

// BootCell is one reserved region of boot-retained memory, excluded from
// zero-initialization. It holds a guard word and the one-shot port count.
// Its content is undefined after a cold power-up.
type BootCell interface {
	Load() (guard uint32, ports uint8)
	Store(guard uint32, ports uint8)
}

// Transport hands completed SysEx frames back to the MIDI stack.
type Transport interface {
	Send(frame []byte) error

	// Pending reports queued outbound work. The firmware update commit
	// drains it before resetting, the servicing loop will not run again.
	Pending() bool
}

// Resetter triggers a hardware reset. Boot-retained memory survives it.
type Resetter interface {
	Reset()
}
