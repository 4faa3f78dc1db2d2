// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package sysex

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestDecodeCodepoint(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		cp   rune
		size int
	}{
		{"ASCII", []byte("A"), 'A', 1},
		{"two byte", []byte("é"), 0xe9, 2},
		{"three byte", []byte("€"), 0x20ac, 3},
		{"four byte", []byte("😀"), 0x1f600, 4},
		{"obsolete five byte", []byte{0xf8, 0x88, 0x80, 0x80, 0x80}, 0x200000, 5},
		{"obsolete six byte", []byte{0xfc, 0x84, 0x80, 0x80, 0x80, 0x80}, 0x4000000, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp, size, err := DecodeCodepoint(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cp != tt.cp || size != tt.size {
				t.Errorf("got U+%04X/%d, expected U+%04X/%d", cp, size, tt.cp, tt.size)
			}
		})
	}
}

func TestDecodeCodepoint_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"lone continuation", []byte{0x80}},
		{"invalid lead", []byte{0xfe}},
		{"bad continuation", []byte{0xc3, 0x41}},
		{"truncated sequence", []byte{0xe2, 0x82}},
		{"continuation is lead", []byte{0xe2, 0xc3, 0xa9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeCodepoint(tt.in); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEscape_ASCII(t *testing.T) {
	in := []byte(`{"method":"getAll"}`)
	out, err := Escape(in, MaxMessageSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Errorf("ASCII should pass through verbatim, got %q", out)
	}
}

func TestEscape_BMP(t *testing.T) {
	out, err := Escape([]byte("é"), MaxMessageSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "\\u00e9" {
		t.Errorf("expected \\u00e9, got %q", out)
	}
}

func TestEscape_SurrogatePair(t *testing.T) {
	out, err := Escape([]byte("😀"), MaxMessageSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "\\ud83d\\ude00" {
		t.Errorf("expected surrogate pair \\ud83d\\ude00, got %q", out)
	}
}

func TestEscape_RoundTrip(t *testing.T) {
	tests := []string{
		"plain ASCII only",
		"Grüße aus Köln",
		"日本語のテキスト",
		"mixed ascii → unicode 😀🎹 text",
		"\U0001F600\U0001F3B9",
	}

	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			out, err := Escape([]byte(tt), MaxMessageSize)
			if err != nil {
				t.Fatalf("escape error: %v", err)
			}

			for _, b := range out {
				if b > 0x7f {
					t.Fatalf("escaped output contains byte 0x%02x", b)
				}
			}

			// Standard JSON unescaping is the inverse.
			var decoded string
			if err := json.Unmarshal([]byte(`"`+string(out)+`"`), &decoded); err != nil {
				t.Fatalf("unescape error: %v", err)
			}
			if decoded != tt {
				t.Errorf("round trip mismatch: got %q", decoded)
			}
		})
	}
}

func TestEscape_SkipsCorruptByte(t *testing.T) {
	// A lead byte with a malformed continuation: the escaper advances
	// exactly one byte and resynchronizes on the 'A'.
	out, err := Escape([]byte{0xc3, 'A', 'B'}, MaxMessageSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "AB" {
		t.Errorf("expected corrupt byte skipped, got %q", out)
	}

	// All corrupt input terminates, no infinite loop.
	out, err = Escape(bytes.Repeat([]byte{0x80}, 64), MaxMessageSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty output, got %q", out)
	}
}

func TestEscape_NoRoom(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
	}{
		{"plain byte", "abc", 2},
		{"escape does not fit", "aé", 6},
		{"surrogate pair does not fit", "a😀", 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Escape([]byte(tt.in), tt.max)
			if err != ErrNoRoom {
				t.Fatalf("expected ErrNoRoom, got %v (%q)", err, out)
			}
			if out != nil {
				t.Errorf("expected no partial output, got %q", out)
			}
		})
	}
}
