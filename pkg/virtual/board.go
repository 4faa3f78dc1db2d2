// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package virtual

import "math/rand"

// BootCell is a boot-retained memory cell. A fresh cell holds garbage,
// like real noinit memory after a cold power-up.
type BootCell struct {
	guard uint32
	ports uint8
}

// NewBootCell creates a cell with undefined content.
func NewBootCell() *BootCell {
	return &BootCell{guard: rand.Uint32(), ports: uint8(rand.Uint32())}
}

// Load returns the guard word and the port count byte.
func (c *BootCell) Load() (uint32, uint8) {
	return c.guard, c.ports
}

// Store writes the guard word and the port count byte.
func (c *BootCell) Store(guard uint32, ports uint8) {
	c.guard = guard
	c.ports = ports
}

// Scramble simulates a cold power-up, the cell content becomes garbage.
func (c *BootCell) Scramble() {
	c.guard = rand.Uint32()
	c.ports = uint8(rand.Uint32())
}

// Hardware is a fixed description of a virtual board.
type Hardware struct {
	Start      uint32
	Image      []byte
	Serial     []uint32
	RAMSize    int
	RAMFree    int
	Flash      int
	Bootloader []byte
}

func (h *Hardware) FirmwareStart() uint32 {
	return h.Start
}

func (h *Hardware) FirmwareImage() []byte {
	return h.Image
}

func (h *Hardware) SerialWords() []uint32 {
	return h.Serial
}

func (h *Hardware) RAM() (int, int) {
	return h.RAMSize, h.RAMFree
}

func (h *Hardware) FlashSize() int {
	return h.Flash
}

func (h *Hardware) BootloaderInfo() ([]byte, error) {
	return h.Bootloader, nil
}

// Transport queues outbound frames in memory for the test or simulator
// host to drain.
type Transport struct {
	Frames [][]byte
}

// Send queues one frame.
func (t *Transport) Send(frame []byte) error {
	t.Frames = append(t.Frames, frame)
	return nil
}

// Pending reports queued frames.
func (t *Transport) Pending() bool {
	return len(t.Frames) > 0
}

// Drain returns and clears the queued frames.
func (t *Transport) Drain() [][]byte {
	frames := t.Frames
	t.Frames = nil
	return frames
}

// Board bundles a full set of virtual collaborators with the sizing of a
// typical SAMD51 board.
type Board struct {
	EEPROM    *EEPROM
	Flash     *Flash
	Cell      *BootCell
	Hardware  *Hardware
	Transport *Transport
	Resetter  *Resetter
}

// NewBoard creates a board with erased storage and a garbage boot cell.
func NewBoard() *Board {
	image := []byte("virtual firmware image")

	return &Board{
		EEPROM: NewEEPROM(4096),
		Flash:  NewFlash(8192, 256*1024, image),
		Cell:   NewBootCell(),
		Hardware: &Hardware{
			Start:      0x4000,
			Image:      image,
			Serial:     []uint32{0x012d87c3, 0x4e1250d0, 0x5555ffee, 0x00c0ffee},
			RAMSize:    192 * 1024,
			RAMFree:    64 * 1024,
			Flash:      512 * 1024,
			Bootloader: []byte("\x00{\"com.versioduo.bootloader\":{\"board\":\"versioduo:samd:itsybitsy\"}}"),
		},
		Transport: &Transport{},
		Resetter:  &Resetter{},
	}
}

// Resetter records reset requests instead of performing them; the owner
// decides how to emulate the reboot.
type Resetter struct {
	Requests int
}

// Reset records one reset request.
func (r *Resetter) Reset() {
	r.Requests++
}
