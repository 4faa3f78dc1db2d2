// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package device

import "fmt"

// Namespace is the top-level JSON key multiplexing this protocol on the
// shared SysEx channel.
const Namespace = "com.versioduo.device"

// Record magics. Erased storage reads as 0xff bytes and never matches.
const (
	configMagic = 0x7ed63a89
	bootMagic   = 0x8f734e41
)

// Metadata identifies the firmware image. Fixed at build time.
type Metadata struct {
	// Reverse-domain, unique device identifier, e.g. com.example.frobnicator.
	ID string

	// Presented to the user as a simple decimal number.
	Version uint32

	// Board identifier the image was built for.
	Board string
}

// ImageJSON returns the JSON fragment describing the firmware image. The
// offline updater reads it from the image file to verify that an update
// matches the board; it is never interpreted at runtime.
func (m Metadata) ImageJSON() string {
	return fmt.Sprintf(`{"interface":"com.versioduo.firmware","id":%q,"version":%d,"board":%q}`,
		m.ID, m.Version, m.Board)
}

// Identity is the human readable device description, also used as USB
// strings.
type Identity struct {
	Vendor      string
	Product     string
	Description string

	// Link to a website, including the protocol prefix.
	Home string
}
