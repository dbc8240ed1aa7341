// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

// Package ebcdic provides the EBCDIC<->Unicode translation used by the
// buffer and NVT layers. Only a single, hand-verified code page (IBM CP
// 037) ships by default; additional code-page tables are out of scope
// (see DESIGN.md).
package ebcdic

import "unicode/utf8"

// Codepage converts between EBCDIC byte streams and UTF-8 text.
type Codepage interface {
	// Decode converts a slice of EBCDIC bytes into a UTF-8 string.
	Decode(b []byte) string

	// Encode converts a UTF-8 string into a slice of EBCDIC bytes.
	Encode(s string) []byte

	// DecodeByte converts a single EBCDIC byte into its rune.
	DecodeByte(b byte) rune

	// EncodeRune converts a single rune into its EBCDIC byte, returning
	// ok=false and the substitute character if there is no mapping.
	EncodeRune(r rune) (b byte, ok bool)

	// ID names the code page, e.g. "037".
	ID() string
}

type table struct {
	id     string
	e2u    [256]rune
	u2e    map[rune]byte
	substE byte
}

// Decode converts a slice of EBCDIC bytes into a UTF-8 string.
func (t *table) Decode(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = t.e2u[c]
	}
	return string(runes)
}

// Encode converts a UTF-8 string into a slice of EBCDIC bytes.
func (t *table) Encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size <= 1 {
			break
		}
		if b, ok := t.u2e[r]; ok {
			out = append(out, b)
		} else {
			out = append(out, t.substE)
		}
		s = s[size:]
	}
	return out
}

func (t *table) DecodeByte(b byte) rune { return t.e2u[b] }

func (t *table) EncodeRune(r rune) (byte, bool) {
	b, ok := t.u2e[r]
	if !ok {
		return t.substE, false
	}
	return b, true
}

func (t *table) ID() string { return t.id }

// Default returns the default code page (CP 037), matching the
// behavior of most US tn3270 hosts and emulators.
func Default() Codepage { return cp037 }

var cp037 = newTable("037", cp037e2u, 0x6f) // 0x6f is '?'

func newTable(id string, e2u [256]rune, substE byte) *table {
	t := &table{id: id, e2u: e2u, substE: substE, u2e: make(map[rune]byte, 256)}
	for b, r := range e2u {
		if _, exists := t.u2e[r]; !exists {
			t.u2e[r] = byte(b)
		}
	}
	return t
}

// cp037e2u is the IBM CP 037 (US/Canada EBCDIC) to Unicode mapping for
// all 256 byte values.
var cp037e2u = [256]rune{
	0x00: 0x00, 0x01: 0x01, 0x02: 0x02, 0x03: 0x03, 0x04: 0x9C, 0x05: 0x09,
	0x06: 0x86, 0x07: 0x7F, 0x08: 0x97, 0x09: 0x8D, 0x0A: 0x8E, 0x0B: 0x0B,
	0x0C: 0x0C, 0x0D: 0x0D, 0x0E: 0x0E, 0x0F: 0x0F,
	0x10: 0x10, 0x11: 0x11, 0x12: 0x12, 0x13: 0x13, 0x14: 0x9D, 0x15: 0x85,
	0x16: 0x08, 0x17: 0x87, 0x18: 0x18, 0x19: 0x19, 0x1A: 0x92, 0x1B: 0x8F,
	0x1C: 0x1C, 0x1D: 0x1D, 0x1E: 0x1E, 0x1F: 0x1F,
	0x20: 0x80, 0x21: 0x81, 0x22: 0x82, 0x23: 0x83, 0x24: 0x84, 0x25: 0x0A,
	0x26: 0x17, 0x27: 0x1B, 0x28: 0x88, 0x29: 0x89, 0x2A: 0x8A, 0x2B: 0x8B,
	0x2C: 0x8C, 0x2D: 0x05, 0x2E: 0x06, 0x2F: 0x07,
	0x30: 0x90, 0x31: 0x91, 0x32: 0x16, 0x33: 0x93, 0x34: 0x94, 0x35: 0x95,
	0x36: 0x96, 0x37: 0x04, 0x38: 0x98, 0x39: 0x99, 0x3A: 0x9A, 0x3B: 0x9B,
	0x3C: 0x14, 0x3D: 0x15, 0x3E: 0x9E, 0x3F: 0x1A,
	0x40: 0x20, 0x41: 0xA0, 0x42: 0xE2, 0x43: 0xE4, 0x44: 0xE0, 0x45: 0xE1,
	0x46: 0xE3, 0x47: 0xE5, 0x48: 0xE7, 0x49: 0xF1, 0x4A: 0xA2, 0x4B: 0x2E,
	0x4C: 0x3C, 0x4D: 0x28, 0x4E: 0x2B, 0x4F: 0x7C,
	0x50: 0x26, 0x51: 0xE9, 0x52: 0xEA, 0x53: 0xEB, 0x54: 0xE8, 0x55: 0xED,
	0x56: 0xEE, 0x57: 0xEF, 0x58: 0xEC, 0x59: 0xDF, 0x5A: 0x21, 0x5B: 0x24,
	0x5C: 0x2A, 0x5D: 0x29, 0x5E: 0x3B, 0x5F: 0xAC,
	0x60: 0x2D, 0x61: 0x2F, 0x62: 0xC2, 0x63: 0xC4, 0x64: 0xC0, 0x65: 0xC1,
	0x66: 0xC3, 0x67: 0xC5, 0x68: 0xC7, 0x69: 0xD1, 0x6A: 0xA6, 0x6B: 0x2C,
	0x6C: 0x25, 0x6D: 0x5F, 0x6E: 0x3E, 0x6F: 0x3F,
	0x70: 0xF8, 0x71: 0xC9, 0x72: 0xCA, 0x73: 0xCB, 0x74: 0xC8, 0x75: 0xCD,
	0x76: 0xCE, 0x77: 0xCF, 0x78: 0xCC, 0x79: 0x60, 0x7A: 0x3A, 0x7B: 0x23,
	0x7C: 0x40, 0x7D: 0x27, 0x7E: 0x3D, 0x7F: 0x22,
	0x80: 0xD8, 0x81: 0x61, 0x82: 0x62, 0x83: 0x63, 0x84: 0x64, 0x85: 0x65,
	0x86: 0x66, 0x87: 0x67, 0x88: 0x68, 0x89: 0x69, 0x8A: 0xAB, 0x8B: 0xBB,
	0x8C: 0xF0, 0x8D: 0xFD, 0x8E: 0xFE, 0x8F: 0xB1,
	0x90: 0xB0, 0x91: 0x6A, 0x92: 0x6B, 0x93: 0x6C, 0x94: 0x6D, 0x95: 0x6E,
	0x96: 0x6F, 0x97: 0x70, 0x98: 0x71, 0x99: 0x72, 0x9A: 0xAA, 0x9B: 0xBA,
	0x9C: 0xE6, 0x9D: 0xB8, 0x9E: 0xC6, 0x9F: 0xA4,
	0xA0: 0xB5, 0xA1: 0x7E, 0xA2: 0x73, 0xA3: 0x74, 0xA4: 0x75, 0xA5: 0x76,
	0xA6: 0x77, 0xA7: 0x78, 0xA8: 0x79, 0xA9: 0x7A, 0xAA: 0xA1, 0xAB: 0xBF,
	0xAC: 0xD0, 0xAD: 0xDD, 0xAE: 0xDE, 0xAF: 0xAE,
	0xB0: 0x5E, 0xB1: 0xA3, 0xB2: 0xA5, 0xB3: 0xB7, 0xB4: 0xA9, 0xB5: 0xA7,
	0xB6: 0xB6, 0xB7: 0xBC, 0xB8: 0xBD, 0xB9: 0xBE, 0xBA: 0x5B, 0xBB: 0x5D,
	0xBC: 0xAF, 0xBD: 0xA8, 0xBE: 0xB4, 0xBF: 0xD7,
	0xC0: 0x7B, 0xC1: 0x41, 0xC2: 0x42, 0xC3: 0x43, 0xC4: 0x44, 0xC5: 0x45,
	0xC6: 0x46, 0xC7: 0x47, 0xC8: 0x48, 0xC9: 0x49, 0xCA: 0xAD, 0xCB: 0xF4,
	0xCC: 0xF6, 0xCD: 0xF2, 0xCE: 0xF3, 0xCF: 0xF5,
	0xD0: 0x7D, 0xD1: 0x4A, 0xD2: 0x4B, 0xD3: 0x4C, 0xD4: 0x4D, 0xD5: 0x4E,
	0xD6: 0x4F, 0xD7: 0x50, 0xD8: 0x51, 0xD9: 0x52, 0xDA: 0xB9, 0xDB: 0xFB,
	0xDC: 0xFC, 0xDD: 0xF9, 0xDE: 0xFA, 0xDF: 0xFF,
	0xE0: 0x5C, 0xE1: 0xF7, 0xE2: 0x53, 0xE3: 0x54, 0xE4: 0x55, 0xE5: 0x56,
	0xE6: 0x57, 0xE7: 0x58, 0xE8: 0x59, 0xE9: 0x5A, 0xEA: 0xB2, 0xEB: 0xD4,
	0xEC: 0xD6, 0xED: 0xD2, 0xEE: 0xD3, 0xEF: 0xD5,
	0xF0: 0x30, 0xF1: 0x31, 0xF2: 0x32, 0xF3: 0x33, 0xF4: 0x34, 0xF5: 0x35,
	0xF6: 0x36, 0xF7: 0x37, 0xF8: 0x38, 0xF9: 0x39, 0xFA: 0xB3, 0xFB: 0xDB,
	0xFC: 0xDC, 0xFD: 0xD9, 0xFE: 0xDA, 0xFF: 0x9F,
}
