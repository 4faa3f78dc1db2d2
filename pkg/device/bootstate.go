// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package device

// BootState carries one value across a self-triggered reboot: the number
// of MIDI ports to present on the next boot. The backing cell lives in
// memory which survives a warm reset but is undefined after a power loss;
// the guard word tells the two apart.
type BootState struct {
	cell BootCell
}

// NewBootState wraps the boot-retained cell.
func NewBootState(cell BootCell) *BootState {
	return &BootState{cell: cell}
}

// ReadAndClear returns the port count stored before the previous reset.
// The value is only honored after a warm reset, and only once: the cell
// is cleared on every read path, a garbage byte from a cold start is
// never left behind.
func (b *BootState) ReadAndClear() (uint8, bool) {
	guard, ports := b.cell.Load()
	b.cell.Store(bootMagic, 0)

	if guard != bootMagic {
		return 0, false
	}

	if ports <= 1 {
		return 0, false
	}

	return ports, true
}

// Set stores the port count for the next boot. Called immediately before
// the reset, no further code runs in this boot cycle.
func (b *BootState) Set(ports uint8) {
	b.cell.Store(bootMagic, ports)
}
