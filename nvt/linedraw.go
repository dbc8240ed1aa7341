// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

package nvt

// linedrawTable maps the VT100 line-drawing code range [0x5F, 0x7E] to
// the Unicode box-drawing glyph it represents when the designated
// charset is lineDraw (spec §4.5 "Line-drawing"; table content carried
// over from original_source/Common/nvt.c per SPEC_FULL.md).
var linedrawTable = [0x7F]rune{
	0x5F: ' ', // blank
	0x60: '◆', // diamond
	0x61: '▒', // checkerboard
	0x62: '␉', // HT symbol
	0x63: '␌', // FF symbol
	0x64: '␍', // CR symbol
	0x65: '␊', // LF symbol
	0x66: '°', // degree
	0x67: '±', // plus/minus
	0x68: '␤', // NL symbol
	0x69: '␋', // VT symbol
	0x6a: '┘', // lower-right corner
	0x6b: '┐', // upper-right corner
	0x6c: '┌', // upper-left corner
	0x6d: '└', // lower-left corner
	0x6e: '┼', // crossing lines
	0x6f: '⎺', // scan line 1
	0x70: '⎻', // scan line 3
	0x71: '─', // horizontal line
	0x72: '⎼', // scan line 7
	0x73: '⎽', // scan line 9
	0x74: '├', // left "T"
	0x75: '┤', // right "T"
	0x76: '┴', // bottom "T"
	0x77: '┬', // top "T"
	0x78: '│', // vertical line
	0x79: '≤', // less-or-equal
	0x7a: '≥', // greater-or-equal
	0x7b: 'π', // pi
	0x7c: '≠', // not-equal
	0x7d: '£', // pound sterling
	0x7e: '·', // middle dot
}

func lineDrawRune(c byte) rune {
	if c < 0x5F || c > 0x7E {
		return rune(c)
	}
	return linedrawTable[c]
}
