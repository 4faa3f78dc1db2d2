// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

// Package device implements the control plane of a V2 USB-MIDI device:
// lifecycle, persistent configuration, and the JSON-over-SysEx management
// protocol, including firmware updates. The MIDI data path, the USB stack,
// and the physical storage drivers are collaborators plugged in through
// the interfaces in this package.
package device

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// LocalConfig declares the device-specific section of the persistent
// record: an opaque, size-prefixed payload owned and interpreted only by
// the device-specific code. Data keeps its fixed declared capacity.
type LocalConfig struct {
	Magic uint32
	Data  []byte
}

// Options assembles a Device. Storage, Flash, Hardware, BootCell,
// Transport and Resetter are required collaborators.
type Options struct {
	Metadata Metadata
	Identity Identity

	// Link to firmware image updates, including the protocol prefix. An
	// 'index.json' file is expected at the location.
	Download string

	// Compiled-in USB IDs. The presented product ID is offset by the
	// current port count so hosts see a distinct identity per count.
	VID uint16
	PID uint16

	Local LocalConfig

	Hooks     Hooks
	Storage   Storage
	Flash     Flash
	Hardware  Hardware
	BootCell  BootCell
	Transport Transport
	Resetter  Resetter
}

// Device is the in-memory device state, constructed once at startup and
// owned by the single servicing control flow until power-down.
type Device struct {
	metadata Metadata
	identity Identity
	download string
	vid      uint16
	pid      uint16
	local    LocalConfig

	hooks     Hooks
	store     configStore
	flash     Flash
	hardware  Hardware
	boot      *BootState
	transport Transport
	resetter  Resetter

	name         string // display name override, empty == product name
	ports        Ports
	token        uint32
	firmwareHash string
	record       configRecord
	statistics   Statistics
	started      time.Time

	sleep func(time.Duration)
}

// New creates a Device. Call Start before handling any traffic.
func New(opts Options) (*Device, error) {
	switch {
	case opts.Storage == nil:
		return nil, fmt.Errorf("device: no storage driver")

	case opts.Flash == nil:
		return nil, fmt.Errorf("device: no flash driver")

	case opts.Hardware == nil:
		return nil, fmt.Errorf("device: no hardware description")

	case opts.BootCell == nil:
		return nil, fmt.Errorf("device: no boot-retained cell")

	case opts.Transport == nil:
		return nil, fmt.Errorf("device: no transport")

	case opts.Resetter == nil:
		return nil, fmt.Errorf("device: no resetter")
	}

	hooks := opts.Hooks
	if hooks == nil {
		hooks = NoopHooks{}
	}

	return &Device{
		metadata:  opts.Metadata,
		identity:  opts.Identity,
		download:  opts.Download,
		vid:       opts.VID,
		pid:       opts.PID,
		local:     opts.Local,
		hooks:     hooks,
		store:     configStore{storage: opts.Storage},
		flash:     opts.Flash,
		hardware:  opts.Hardware,
		boot:      NewBootState(opts.BootCell),
		transport: opts.Transport,
		resetter:  opts.Resetter,
		sleep:     time.Sleep,
	}, nil
}

// Start reads the persistent configuration, consumes the boot-retained
// port count, generates the session token and computes the firmware hash.
// The hash takes ~80ms of synchronous work, schedule around it, the
// device is not interactive before Start returns.
func (d *Device) Start() error {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Errorf("device: boot token: %w", err)
	}
	d.token = binary.LittleEndian.Uint32(buf[:])

	sum := sha1.Sum(d.hardware.FirmwareImage())
	d.firmwareHash = hex.EncodeToString(sum[:])

	// A port count from the previous boot cycle wins, exactly once.
	reboot, _ := d.boot.ReadAndClear()
	d.ports = Ports{Configured: 1, Reboot: reboot, Current: 1}

	d.loadConfiguration()
	d.hooks.HandleInit()

	switch {
	case d.ports.Reboot > 1:
		d.ports.Current = d.ports.Reboot

	case d.ports.Configured > 1:
		d.ports.Current = d.ports.Configured
	}

	d.started = time.Now()
	return nil
}

// loadConfiguration applies the persistent record to the live state.
// Corrupt or unformatted storage yields the defaults.
func (d *Device) loadConfiguration() {
	rec, ok := d.store.read()
	if !ok {
		return
	}

	d.record = rec

	if rec.name != "" {
		d.name = rec.name
	}

	// A port count of 0 or 1 means not configured.
	if rec.ports > 1 {
		d.ports.Configured = rec.ports
	}

	if blob := d.store.readLocal(rec, d.local.Magic, len(d.local.Data)); blob != nil {
		copy(d.local.Data, blob)
	}
}

// writeConfiguration persists the full record including the device-specific
// payload.
func (d *Device) writeConfiguration() error {
	d.record.localMagic = d.local.Magic
	return d.store.write(d.record, d.local.Data)
}

// Tick runs one servicing iteration.
func (d *Device) Tick() {
	d.hooks.HandleLoop()
}

// Idle reports whether there is no pending work, e.g. queued messages.
func (d *Device) Idle() bool {
	return !d.transport.Pending()
}

// Name returns the presented USB device name: the stored custom name, or
// the product name.
func (d *Device) Name() string {
	if d.name != "" {
		return d.name
	}

	return d.identity.Product
}

// Ports returns the current port count trio.
func (d *Device) Ports() Ports {
	return d.ports
}

// Token returns the per-session boot token.
func (d *Device) Token() uint32 {
	return d.token
}

// FirmwareHash returns the hex digest of the active firmware image,
// computed once at startup.
func (d *Device) FirmwareHash() string {
	return d.firmwareHash
}

// Statistics returns the per-direction message counters for the MIDI data
// path to update.
func (d *Device) Statistics() *Statistics {
	return &d.statistics
}

// Local returns the device-specific configuration payload.
func (d *Device) Local() []byte {
	return d.local.Data
}

// USBIDs returns the presented USB IDs. Custom IDs from the persistent
// record override the compiled-in values; the product ID is offset by the
// current port count so host operating systems see a distinct device
// identity per count.
func (d *Device) USBIDs() (vid, pid uint16) {
	vid = d.vid
	if d.record.vid > 0 {
		vid = d.record.vid
	}

	pid = d.pid
	if d.record.pid > 0 {
		pid = d.record.pid
	}

	return vid, pid + uint16(d.ports.Current) - 1
}

// USBVersionBCD returns the firmware version packed as the BCD device
// release number for the USB descriptor.
func (d *Device) USBVersionBCD() uint16 {
	return bcdVersion(d.metadata.Version)
}
