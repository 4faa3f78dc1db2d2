// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package sysex

import (
	"errors"
	"fmt"
)

// ErrNoRoom is returned when the escaped output would exceed the given
// capacity. Nothing is emitted past the limit, the destination is never
// left with a truncated escape sequence.
var ErrNoRoom = errors.New("sysex: no room in output buffer")

// DecodeCodepoint decodes a single UTF-8 sequence of 1-6 bytes, including
// the obsolete 5 and 6 byte forms. It returns the codepoint and the number
// of bytes consumed. Callers recover from a malformed sequence by skipping
// exactly one byte and retrying.
func DecodeCodepoint(b []byte) (rune, int, error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("sysex: empty input")
	}

	var size int
	var cp rune

	switch {
	case b[0] < 0x80:
		size = 1
		cp = rune(b[0])

	case b[0]&0xe0 == 0xc0:
		size = 2
		cp = rune(b[0] & 0x1f)

	case b[0]&0xf0 == 0xe0:
		size = 3
		cp = rune(b[0] & 0x0f)

	case b[0]&0xf8 == 0xf0:
		size = 4
		cp = rune(b[0] & 0x07)

	case b[0]&0xfc == 0xf8:
		size = 5
		cp = rune(b[0] & 0x03)

	case b[0]&0xfe == 0xfc:
		size = 6
		cp = rune(b[0] & 0x01)

	default:
		return 0, 0, fmt.Errorf("sysex: invalid UTF-8 lead byte 0x%02x", b[0])
	}

	if len(b) < size {
		return 0, 0, fmt.Errorf("sysex: truncated UTF-8 sequence, need %d bytes", size)
	}

	for i := 1; i < size; i++ {
		if b[i]&0xc0 != 0x80 {
			return 0, 0, fmt.Errorf("sysex: invalid UTF-8 continuation byte 0x%02x", b[i])
		}

		cp <<= 6
		cp |= rune(b[i] & 0x3f)
	}

	return cp, size, nil
}

// Escape converts UTF-8 encoded JSON into a 7 bit safe byte stream. Bytes
// below 0x80 are copied verbatim; everything else is emitted as a JSON
// \u escape, codepoints outside the Basic Multilingual Plane as a UTF-16
// surrogate pair. Malformed bytes are skipped one at a time.
func Escape(src []byte, max int) ([]byte, error) {
	out := make([]byte, 0, len(src))

	for i := 0; i < len(src); {
		if src[i] < 0x80 {
			if len(out)+1 > max {
				return nil, ErrNoRoom
			}

			out = append(out, src[i])
			i++
			continue
		}

		cp, size, err := DecodeCodepoint(src[i:])
		if err != nil {
			// Skip exactly one byte, guarantees forward progress
			// on corrupt input.
			i++
			continue
		}

		i += size

		if cp < 0x10000 {
			if len(out)+6 > max {
				return nil, ErrNoRoom
			}

			out = append(out, fmt.Sprintf("\\u%04x", cp)...)
			continue
		}

		if len(out)+12 > max {
			return nil, ErrNoRoom
		}

		cp -= 0x10000
		high := (cp >> 10) + 0xd800
		low := (cp & 0x3ff) + 0xdc00
		out = append(out, fmt.Sprintf("\\u%04x\\u%04x", high, low)...)
	}

	return out, nil
}
