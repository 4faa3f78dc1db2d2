// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package device

// Ports is the MIDI port count trio. The configured value comes from the
// persistent record, the reboot value is carried over from the previous
// boot cycle exactly once, the current value is what this session actually
// presents over USB.
type Ports struct {
	Configured uint8
	Reboot     uint8
	Current    uint8
}

// Counter counts MIDI messages by category for one direction. Categories
// which never occurred are omitted from the reply.
type Counter struct {
	Packet            uint32
	Note              uint32
	NoteOff           uint32
	Aftertouch        uint32
	Control           uint32
	Program           uint32
	AftertouchChannel uint32
	Pitchbend         uint32

	System struct {
		Exclusive uint32
		Reset     uint32

		Clock struct {
			Tick uint32
		}
	}
}

// Statistics groups the message counters by direction. The MIDI data path
// updates them, the protocol engine only reports them.
type Statistics struct {
	Input  Counter
	Output Counter
}

// export writes the non-zero counters into a reply section.
func (c *Counter) export(json map[string]any) {
	json["packet"] = c.Packet

	if c.Note > 0 {
		json["note"] = c.Note
	}

	if c.NoteOff > 0 {
		json["noteOff"] = c.NoteOff
	}

	if c.Aftertouch > 0 {
		json["aftertouch"] = c.Aftertouch
	}

	if c.Control > 0 {
		json["control"] = c.Control
	}

	if c.Program > 0 {
		json["program"] = c.Program
	}

	if c.AftertouchChannel > 0 {
		json["aftertouchChannel"] = c.AftertouchChannel
	}

	if c.Pitchbend > 0 {
		json["pitchbend"] = c.Pitchbend
	}

	if c.System.Exclusive > 0 || c.System.Reset > 0 || c.System.Clock.Tick > 0 {
		system := map[string]any{}

		if c.System.Exclusive > 0 {
			system["exclusive"] = c.System.Exclusive
		}

		if c.System.Reset > 0 {
			system["reset"] = c.System.Reset
		}

		if c.System.Clock.Tick > 0 {
			system["clock"] = map[string]any{"tick": c.System.Clock.Tick}
		}

		json["system"] = system
	}
}

// bcdVersion packs up to four decimal digits of a version number into BCD
// nibbles, the encoding USB descriptors expect for the device release
// number: 1 becomes 0x0001 ("0.01"), 815 becomes 0x0815 ("8.15").
func bcdVersion(version uint32) uint16 {
	var bcd uint16

	for i := 0; i < 4; i++ {
		bcd |= uint16(version%10) << (4 * i)
		version /= 10
	}

	return bcd
}
