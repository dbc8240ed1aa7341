// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

// Package nvt implements the ANSI/VT100 "NVT mode" byte processor
// described in spec §4.5: a small state machine that turns a raw host
// byte stream into mutations of the shared screen buffer, honoring
// cursor movement, scroll regions, charset designation, DBCS wide
// characters, and xterm OSC sequences.
package nvt

import (
	"github.com/go3270/coreterm/buffer"
)

// State names the 9 states of the NVT dispatch table (spec §4.5).
type State int

const (
	StateData State = iota
	StateEsc
	StateCSDes
	StateN1
	StateDECP
	StateText
	StateText2
	StateMBPend
	StateEscGT
)

// Mode bits set and cleared by DECSET/DECRST (spec §4.5 "Modes"). No
// saved copy of these bits is kept: ESC 7/ESC 8 round-trip only the
// fields of SavedCursor, and the DEC mode save/restore sequences are not
// handled.
type Mode uint32

const (
	ModeWraparound Mode = 1 << iota
	ModeReverseWrap
	ModeAppCursor
	ModeCol132
	ModeAltBuffer
	ModeCursorVisible
	ModeAutoNewline
	ModeInsert
)

// Charset identifies one of the four G-set designations (spec §4.5).
type Charset int

const (
	CharsetUS Charset = iota
	CharsetUK
	CharsetLineDraw
)

// SavedCursor captures everything ESC 7 / ESC 8 round-trips (spec §4.5
// + SUPPLEMENTED FEATURES: all four G-slots and GL, not just position).
type SavedCursor struct {
	CursorAddr int
	GL         int // which of csd[0..3] is selected (G0-G3)
	CSD        [4]Charset
	FG, BG, GR byte
}

// Processor is the NVT byte-stream processor. It shares the same
// *buffer.Buffer the 3270 decoder writes to (spec §3: one buffer, two
// producers).
type Processor struct {
	Buf *buffer.Buffer
	CB  buffer.Callbacks

	state State

	Mode Mode

	GL  int // selected G-set, 0-3
	CSD [4]Charset

	FG, BG, GR byte

	scrollTop, scrollBottom int // 1-based inclusive, 0 means unset (full screen)

	saved SavedCursor

	// CSI parameter accumulator.
	csiParams   []int
	csiPrivate  bool

	// Charset-designation pending target (which G-slot CSDes is for).
	csDesTarget int

	// OSC accumulator.
	oscCode int
	oscText []byte

	// UTF-8 assembler staging buffer.
	mbBuf  []byte
	mbWant int
}

// New creates an NVT processor bound to buf.
func New(buf *buffer.Buffer, cb buffer.Callbacks) *Processor {
	if cb == nil {
		cb = buffer.NopCallbacks{}
	}
	p := &Processor{Buf: buf, CB: cb, Mode: ModeWraparound | ModeCursorVisible}
	return p
}

// Process feeds a run of host bytes through the state machine (spec
// §4.5). It never blocks.
func (p *Processor) Process(data []byte) {
	for _, c := range data {
		p.step(c)
	}
}

func (p *Processor) step(c byte) {
	switch p.state {
	case StateData:
		p.stepData(c)
	case StateEsc:
		p.stepEsc(c)
	case StateCSDes:
		p.stepCSDes(c)
	case StateN1:
		p.stepN1(c)
	case StateDECP:
		p.stepDECP(c)
	case StateText:
		p.stepText(c)
	case StateText2:
		p.stepText2(c)
	case StateMBPend:
		p.stepMBPend(c)
	case StateEscGT:
		p.stepEscGT(c)
	}
}

// --- StateData -------------------------------------------------------

func (p *Processor) stepData(c byte) {
	if c == 0x1B {
		p.state = StateEsc
		return
	}
	if c < 0x20 || c == 0x7F {
		p.control(c)
		return
	}
	if c&0x80 != 0 {
		p.mbBuf = []byte{c}
		p.mbWant = utf8ContinuationsNeeded(c)
		if p.mbWant <= 0 {
			p.writePrintable('?')
			return
		}
		p.state = StateMBPend
		return
	}
	p.writePrintableByte(c)
}

// control handles the C0 control codes honored outside of printable
// dispatch (spec §4.5 key design points reference BEL, BS, HT, LF, CR
// among others via the action table).
func (p *Processor) control(c byte) {
	switch c {
	case 0x07: // BEL
		p.CB.RingBell()
	case 0x08: // BS
		p.moveCursorCol(-1)
	case 0x09: // HT
		p.tab()
	case 0x0A, 0x0B, 0x0C: // LF, VT, FF
		p.newline(false)
	case 0x0D: // CR
		p.moveCursorToCol(0)
	default:
		p.CB.Trace("nvt: ignored control byte 0x%02x", c)
	}
}

// writePrintableByte resolves charset/line-drawing/DBCS for one data
// byte in the single-byte (non-UTF-8-continuation) path.
func (p *Processor) writePrintableByte(c byte) {
	cur := p.CSD[p.GL]
	if cur == CharsetLineDraw && c >= 0x5F && c <= 0x7E {
		p.writeCellRune(lineDrawRune(c), buffer.CSLineDraw)
		return
	}
	if cur == CharsetUK && c == '#' {
		p.writeCellRune('£', 0)
		return
	}
	p.writePrintable(rune(c))
}

func (p *Processor) writePrintable(r rune) {
	p.writeCellRune(r, 0)
}

// writeCellRune writes a rune at the cursor, honoring the held-wrap
// model (spec §4.5 "Wrap") and DBCS wide-character pairing.
func (p *Processor) writeCellRune(r rune, cs byte) {
	b := p.Buf
	if isWide(r) {
		p.writeWide(r, cs)
		return
	}

	if p.atHeldWrapCol() {
		p.advanceAfterHeldWrap()
	}

	row, col := p.rowCol(b.CursorAddr)
	b.AddChar(b.CursorAddr, 0, cs)
	cell := b.At(b.CursorAddr)
	cell.UCS4 = r
	cell.EC = 0
	cell.CS = cs
	cell.FG, cell.BG, cell.GR = p.FG, p.BG, p.GR
	cell.DB = buffer.DBNone
	b.Set(b.CursorAddr, cell)

	if col == b.Cols()-1 {
		cell.GR |= buffer.GRWrap
		b.Set(b.CursorAddr, cell)
		// cursor stays; next printable advances first (held-wrap).
		return
	}
	b.CursorAddr = b.IncBA(b.CursorAddr)
	_ = row
}

// writeWide writes a DBCS-style wide character across two adjacent
// cells (spec §4.5 "DBCS wide characters").
func (p *Processor) writeWide(r rune, cs byte) {
	b := p.Buf
	if p.atHeldWrapCol() {
		p.advanceAfterHeldWrap()
	}
	_, col := p.rowCol(b.CursorAddr)
	if col == b.Cols()-1 {
		// Writing at the last column first writes a space there and
		// advances, to keep the pair aligned (spec §4.5).
		p.writeSpaceCell()
		p.advanceAfterHeldWrap()
	}

	p.eraseOrphanHalf(b.CursorAddr)
	left := b.CursorAddr
	cell := buffer.Cell{UCS4: r, CS: cs, FG: p.FG, BG: p.BG, GR: p.GR, DB: buffer.DBLeft}
	b.Set(left, cell)
	right := b.IncBA(left)
	p.eraseOrphanHalf(right)
	rcell := buffer.Cell{UCS4: r, CS: cs, FG: p.FG, BG: p.BG, GR: p.GR, DB: buffer.DBRight}
	b.Set(right, rcell)

	_, rightCol := p.rowCol(right)
	if rightCol == b.Cols()-1 {
		rcell.GR |= buffer.GRWrap
		b.Set(right, rcell)
		b.CursorAddr = right
		return
	}
	b.CursorAddr = b.IncBA(right)
}

// eraseOrphanHalf clears the other half of a DBCS pair if overwriting
// one half of it (spec §4.5).
func (p *Processor) eraseOrphanHalf(addr int) {
	b := p.Buf
	cell := b.At(addr)
	switch cell.DB {
	case buffer.DBLeft:
		other := b.IncBA(addr)
		b.AddChar(other, 0, 0)
	case buffer.DBRight:
		other := b.DecBA(addr)
		b.AddChar(other, 0, 0)
	}
}

func (p *Processor) writeSpaceCell() {
	b := p.Buf
	cell := buffer.Cell{UCS4: ' ', FG: p.FG, BG: p.BG, GR: p.GR}
	b.Set(b.CursorAddr, cell)
}

// atHeldWrapCol reports whether the cursor sits on a line's last column
// whose cell already carries the WRAP marker.
func (p *Processor) atHeldWrapCol() bool {
	b := p.Buf
	_, col := p.rowCol(b.CursorAddr)
	if col != b.Cols()-1 {
		return false
	}
	return b.At(b.CursorAddr).GR&buffer.GRWrap != 0
}

func (p *Processor) advanceAfterHeldWrap() {
	p.newline(true)
}

func (p *Processor) rowCol(addr int) (row, col int) {
	cols := p.Buf.Cols()
	return addr / cols, addr % cols
}

func (p *Processor) moveCursorCol(delta int) {
	b := p.Buf
	row, col := p.rowCol(b.CursorAddr)
	col += delta
	if col < 0 {
		col = 0
	}
	if col >= b.Cols() {
		col = b.Cols() - 1
	}
	b.CursorAddr = row*b.Cols() + col
}

func (p *Processor) moveCursorToCol(col int) {
	b := p.Buf
	row, _ := p.rowCol(b.CursorAddr)
	if col < 0 {
		col = 0
	}
	if col >= b.Cols() {
		col = b.Cols() - 1
	}
	b.CursorAddr = row*b.Cols() + col
}

func (p *Processor) tab() {
	b := p.Buf
	row, col := p.rowCol(b.CursorAddr)
	next := ((col / 8) + 1) * 8
	if next >= b.Cols() {
		next = b.Cols() - 1
	}
	b.CursorAddr = row*b.Cols() + next
}

// newline advances to the next row, scrolling the scroll region if
// already at its bottom; toCol0 also resets the column (used by both
// NEL and the held-wrap continuation).
func (p *Processor) newline(toCol0 bool) {
	b := p.Buf
	top, bottom := p.region()
	row, col := p.rowCol(b.CursorAddr)
	if toCol0 {
		col = 0
	}
	if row == bottom-1 {
		b.Scroll(top, bottom, p.FG, p.BG)
		b.CursorAddr = (bottom-1)*b.Cols() + col
		return
	}
	row++
	if row >= b.Rows() {
		row = b.Rows() - 1
	}
	b.CursorAddr = row*b.Cols() + col
}

// region returns the active scroll region, 1-based inclusive, defaulting
// to the full screen.
func (p *Processor) region() (top, bottom int) {
	b := p.Buf
	top, bottom = p.scrollTop, p.scrollBottom
	if top == 0 {
		top = 1
	}
	if bottom == 0 {
		bottom = b.Rows()
	}
	return
}

// --- UTF-8 assembler --------------------------------------------------

func utf8ContinuationsNeeded(lead byte) int {
	switch {
	case lead&0xE0 == 0xC0:
		return 1
	case lead&0xF0 == 0xE0:
		return 2
	case lead&0xF8 == 0xF0:
		return 3
	default:
		return -1
	}
}

func (p *Processor) stepMBPend(c byte) {
	if c&0xC0 != 0x80 {
		// Invalid continuation: emit '?' and re-drive this byte (the
		// one that broke the sequence) through DATA (spec §4.5
		// "Printable").
		p.writePrintable('?')
		p.mbBuf = nil
		p.state = StateData
		p.stepData(c)
		return
	}
	p.mbBuf = append(p.mbBuf, c)
	if len(p.mbBuf) <= p.mbWant {
		return
	}
	r := decodeUTF8(p.mbBuf)
	p.mbBuf = nil
	p.state = StateData
	if r < 0 {
		p.writePrintable('?')
		return
	}
	p.writePrintable(r)
}

func decodeUTF8(b []byte) rune {
	if len(b) == 0 {
		return -1
	}
	lead := b[0]
	var r rune
	switch {
	case lead&0xE0 == 0xC0 && len(b) == 2:
		r = rune(lead&0x1F)<<6 | rune(b[1]&0x3F)
	case lead&0xF0 == 0xE0 && len(b) == 3:
		r = rune(lead&0x0F)<<12 | rune(b[1]&0x3F)<<6 | rune(b[2]&0x3F)
	case lead&0xF8 == 0xF0 && len(b) == 4:
		r = rune(lead&0x07)<<18 | rune(b[1]&0x3F)<<12 | rune(b[2]&0x3F)<<6 | rune(b[3]&0x3F)
	default:
		return -1
	}
	return r
}

// isWide reports whether r occupies two terminal cells. This is a
// pragmatic approximation (CJK unified ideographs and common wide
// blocks), not a full East-Asian-Width table.
func isWide(r rune) bool {
	switch {
	case r >= 0x1100 && r <= 0x115F:
		return true
	case r >= 0x2E80 && r <= 0xA4CF:
		return true
	case r >= 0xAC00 && r <= 0xD7A3:
		return true
	case r >= 0xF900 && r <= 0xFAFF:
		return true
	case r >= 0xFF00 && r <= 0xFF60:
		return true
	}
	return false
}
