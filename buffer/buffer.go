// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

// Package buffer implements the 3270/NVT shared screen buffer: the
// primary and alternate-content cell arrays, the cursor and
// buffer-address registers, and the buffer-copy/erase/scroll primitives
// every higher layer (field attributes, order decoding, NVT) mutates
// through.
package buffer

// DBState classifies a cell's role in a DBCS (double-byte character set)
// pairing, as produced by the DBCS post-processor.
type DBState byte

const (
	DBNone DBState = iota
	DBLeft
	DBRight
	DBLeftWrap
	DBRightWrap
	DBSI
	DBSB
	DBDead
)

// Graphic-rendition bits for Cell.GR.
const (
	GRBlink      byte = 0x01
	GRReverse    byte = 0x02
	GRUnderline  byte = 0x04
	GRIntensify  byte = 0x08
	GRWrap       byte = 0x10
	GRResetShift byte = 0x20 // marks the cell was produced by an SA-ALL/WCC reset
)

// Character-set (Cell.CS) components. The low two bits select the base
// set (0..3, i.e. G0-G3 in NVT terms); the remaining bits are flags.
const (
	CSBaseMask byte = 0x03
	CSGE       byte = 0x04 // graphic escape (APL) set
	CSDBCS     byte = 0x08
	CSLineDraw byte = 0x10 // NVT line-drawing, see nvt.linedrawTable
)

// Field-attribute bits. A non-FA cell always has FA == 0; a cell that
// *is* a field attribute always has the high FAPrintable bit set, which
// is what makes "fa != 0" a reliable test (see spec Invariant (Cell)).
const (
	FAPrintable     byte = 0x40
	FAProtect       byte = 0x20
	FANumeric       byte = 0x10
	FAIntensityMask byte = 0x0c
	FAIntNormNSel   byte = 0x00
	FAIntNormSel    byte = 0x04
	FAIntHighSel    byte = 0x08
	FAIntZeroNSel   byte = 0x0c
	FAModify        byte = 0x01

	// DefaultFA is the sentinel field attribute used when the screen is
	// unformatted: printable, unprotected, normal intensity, modified.
	DefaultFA byte = FAPrintable | FAModify
)

// Cell is one position in the screen buffer.
type Cell struct {
	EC   byte    // EBCDIC code, 3270 mode
	FA   byte    // field attribute; non-zero iff this cell is an FA
	FG   byte    // foreground color, 0 or 0xF0-0xFF
	BG   byte    // background color, 0 or 0xF0-0xFF
	GR   byte    // graphic rendition bitmask
	CS   byte    // character set
	IC   byte    // input control byte
	DB   DBState // DBCS classification
	UCS4 rune    // Unicode scalar, NVT mode only
}

// IsFA reports whether this cell is a field attribute.
func (c Cell) IsFA() bool { return c.FA != 0 }

// Protected reports whether an FA cell's field is protected.
func (c Cell) Protected() bool { return c.FA&FAProtect != 0 }

// Modified reports whether an FA cell's MDT bit is set.
func (c Cell) Modified() bool { return c.FA&FAModify != 0 }

// Callbacks is the set of abstract collaborator hooks the buffer (and
// higher layers built on it) invoke. Every method corresponds to one of
// the abstract names enumerated in spec §6; a nil Callbacks is legal and
// every method becomes a no-op via NopCallbacks.
type Callbacks interface {
	RingBell()
	ScreenChanged()
	ScrollSave(lines []Cell, cols int)
	KybdInhibit(inhibit bool)
	KybdlockClr(mask uint32, reason string)
	VStatus(name string, val bool)
	PopupError(format string, args ...any)
	TaskHostOutput()
	XtermText(code int, text string)
	Trace(format string, args ...any)
}

// NopCallbacks implements Callbacks with no-ops; embed it to satisfy the
// interface while overriding only the methods you care about.
type NopCallbacks struct{}

func (NopCallbacks) RingBell()                                {}
func (NopCallbacks) ScreenChanged()                            {}
func (NopCallbacks) ScrollSave(lines []Cell, cols int)         {}
func (NopCallbacks) KybdInhibit(inhibit bool)                  {}
func (NopCallbacks) KybdlockClr(mask uint32, reason string)    {}
func (NopCallbacks) VStatus(name string, val bool)             {}
func (NopCallbacks) PopupError(format string, args ...any)     {}
func (NopCallbacks) TaskHostOutput()                           {}
func (NopCallbacks) XtermText(code int, text string)           {}
func (NopCallbacks) Trace(format string, args ...any)          {}

// Buffer owns the primary and alternate-content screen buffers, the
// cursor/buffer-address registers, and the screen dimensions, as
// described in spec §3-§4.1.
type Buffer struct {
	cells [2][]Cell // 0 = primary content, 1 = NVT DEC-alt-screen content
	active int       // which of cells[] is logically on screen

	rows, cols         int // current active dimensions
	defRows, defCols   int
	altRows, altCols   int // "alternate size" selected by EWA
	maxRows, maxCols   int
	isAltSize          bool

	CursorAddr int
	BufferAddr int

	// savedCursorAddr/savedBufferAddr hold each content buffer's own
	// cursor/buffer-address registers across an AltBuffer switch (spec
	// §3: "swapping ... is a logical operation that also swaps cursor
	// state"), indexed by the active slot the state belongs to.
	savedCursorAddr [2]int
	savedBufferAddr [2]int

	DefaultAttr Cell // sentinel FA used when screen is unformatted

	Formatted bool

	VisibleControl bool // knob: clear() fills with space instead of null

	CB Callbacks
}

// New creates a Buffer with the given default (primary EW) and alternate
// (EWA) dimensions.
func New(defRows, defCols, altRows, altCols int, cb Callbacks) *Buffer {
	maxRows := defRows
	if altRows > maxRows {
		maxRows = altRows
	}
	maxCols := defCols
	if altCols > maxCols {
		maxCols = altCols
	}
	if cb == nil {
		cb = NopCallbacks{}
	}
	b := &Buffer{
		rows: defRows, cols: defCols,
		defRows: defRows, defCols: defCols,
		altRows: altRows, altCols: altCols,
		maxRows: maxRows, maxCols: maxCols,
		DefaultAttr: Cell{FA: DefaultFA},
		CB:          cb,
	}
	size := maxRows * maxCols
	b.cells[0] = make([]Cell, size)
	b.cells[1] = make([]Cell, size)
	return b
}

// Rows and Cols report the current active dimensions.
func (b *Buffer) Rows() int { return b.rows }
func (b *Buffer) Cols() int { return b.cols }
func (b *Buffer) Size() int { return b.rows * b.cols }

// IncBA advances a buffer address by one with wraparound.
func (b *Buffer) IncBA(addr int) int {
	addr++
	if addr >= b.Size() {
		addr = 0
	}
	return addr
}

// DecBA retreats a buffer address by one with wraparound.
func (b *Buffer) DecBA(addr int) int {
	if addr == 0 {
		return b.Size() - 1
	}
	return addr - 1
}

// cur returns the currently active content buffer.
func (b *Buffer) cur() []Cell { return b.cells[b.active] }

// At returns the cell at addr in the active buffer. addr must be in
// [0, Size()).
func (b *Buffer) At(addr int) Cell { return b.cur()[addr] }

// Set overwrites the cell at addr wholesale (used by the DBCS
// post-processor and NVT, which compute a full Cell value up front).
func (b *Buffer) Set(addr int, c Cell) {
	cur := b.cur()
	if cur[addr] == c {
		return
	}
	cur[addr] = c
	b.CB.ScreenChanged()
}

// AddChar sets a cell's EBCDIC code and character set, marking it dirty
// if changed.
func (b *Buffer) AddChar(addr int, ec byte, cs byte) {
	cur := b.cur()
	if cur[addr].EC == ec && cur[addr].CS == cs && cur[addr].FA == 0 && cur[addr].UCS4 == 0 {
		return
	}
	cur[addr].EC = ec
	cur[addr].CS = cs
	cur[addr].FA = 0
	cur[addr].UCS4 = 0
	b.CB.ScreenChanged()
}

// AddFA sets a cell as a field attribute, resetting its extended
// attributes as SF requires.
func (b *Buffer) AddFA(addr int, fa byte, cs byte) {
	cur := b.cur()
	cur[addr] = Cell{FA: fa, CS: cs}
	b.Formatted = true
	b.CB.ScreenChanged()
}

func (b *Buffer) AddFG(addr int, v byte) {
	cur := b.cur()
	if cur[addr].FG == v {
		return
	}
	cur[addr].FG = v
	b.CB.ScreenChanged()
}

func (b *Buffer) AddBG(addr int, v byte) {
	cur := b.cur()
	if cur[addr].BG == v {
		return
	}
	cur[addr].BG = v
	b.CB.ScreenChanged()
}

func (b *Buffer) AddGR(addr int, v byte) {
	cur := b.cur()
	if cur[addr].GR == v {
		return
	}
	cur[addr].GR = v
	b.CB.ScreenChanged()
}

func (b *Buffer) AddCS(addr int, v byte) {
	cur := b.cur()
	if cur[addr].CS == v {
		return
	}
	cur[addr].CS = v
	b.CB.ScreenChanged()
}

func (b *Buffer) AddIC(addr int, v byte) {
	cur := b.cur()
	if cur[addr].IC == v {
		return
	}
	cur[addr].IC = v
	b.CB.ScreenChanged()
}

// Copy copies n cells from `from` to `to` within the active buffer,
// choosing forward or reverse iteration order so that overlapping
// regions copy correctly, and optionally skipping extended-attribute
// fields (moveEA false leaves FG/BG/GR/CS/IC untouched).
func (b *Buffer) Copy(from, to, n int, moveEA bool) {
	if from == to || n <= 0 {
		return
	}
	cur := b.cur()
	if to < from {
		for i := 0; i < n; i++ {
			b.copyCell(cur, from+i, to+i, moveEA)
		}
	} else {
		for i := n - 1; i >= 0; i-- {
			b.copyCell(cur, from+i, to+i, moveEA)
		}
	}
	b.CB.ScreenChanged()
}

func (b *Buffer) copyCell(cur []Cell, from, to int, moveEA bool) {
	src := cur[from]
	if !moveEA {
		dst := cur[to]
		src.FG, src.BG, src.GR, src.CS, src.IC = dst.FG, dst.BG, dst.GR, dst.CS, dst.IC
	}
	cur[to] = src
}

// WrappingCopy copies n cells from `from` to `to` with wraparound,
// splitting into single-cell copies whenever either region straddles
// the physical end of the buffer.
func (b *Buffer) WrappingCopy(from, to, n int) {
	size := b.Size()
	if from+n <= size && to+n <= size {
		b.Copy(from, to, n, true)
		return
	}
	cur := b.cur()
	for i := 0; i < n; i++ {
		f := (from + i) % size
		t := (to + i) % size
		cur[t] = cur[f]
	}
	b.CB.ScreenChanged()
}

// Clear blanks every cell in the active buffer's current region. If
// canSnap is true and any cell was non-blank, the trace callback is
// primed exactly once.
func (b *Buffer) Clear(canSnap bool) {
	cur := b.cur()
	fill := Cell{EC: 0x00}
	if b.VisibleControl {
		fill = Cell{EC: 0x40} // EBCDIC space
	}
	primed := false
	for i := 0; i < b.Size(); i++ {
		if canSnap && !primed && (cur[i].EC != 0 || cur[i].UCS4 != 0 || cur[i].FA != 0) {
			b.CB.Trace("screen cleared")
			primed = true
		}
		cur[i] = fill
	}
	b.Formatted = false
	b.CB.ScreenChanged()
}

// Erase resizes the active region to the default (alt=false) or
// alternate (alt=true) dimensions and clears it. It is idempotent when
// shape and alt flag already match.
func (b *Buffer) Erase(alt bool) {
	newRows, newCols := b.defRows, b.defCols
	if alt {
		newRows, newCols = b.altRows, b.altCols
	}
	if b.isAltSize == alt && b.rows == newRows && b.cols == newCols {
		b.Clear(true)
		b.CursorAddr = 0
		b.BufferAddr = 0
		return
	}
	b.isAltSize = alt
	b.rows, b.cols = newRows, newCols
	b.Clear(true)
	b.CursorAddr = 0
	b.BufferAddr = 0
}

// Scroll moves rows [1..ROWS-1] up by one line within the active
// buffer's current dimensions and clears the bottom row, honoring the
// given top/bottom scroll-region bounds (1-based, inclusive). When the
// region is the full screen, the scrolled-away top row is handed to the
// scrollback sink.
func (b *Buffer) Scroll(top, bottom int, fg, bg byte) {
	if top < 1 {
		top = 1
	}
	if bottom > b.rows {
		bottom = b.rows
	}
	if top >= bottom {
		return
	}
	cur := b.cur()
	if top == 1 && bottom == b.rows {
		saved := make([]Cell, b.cols)
		copy(saved, cur[0:b.cols])
		b.CB.ScrollSave(saved, b.cols)
	}
	for row := top; row < bottom; row++ {
		dst := (row - 1) * b.cols
		src := row * b.cols
		copy(cur[dst:dst+b.cols], cur[src:src+b.cols])
	}
	blankRow := (bottom - 1) * b.cols
	for i := 0; i < b.cols; i++ {
		cur[blankRow+i] = Cell{EC: 0x00, FG: fg, BG: bg}
	}
	b.CB.ScreenChanged()
}

// AltBuffer switches which content buffer (primary content vs NVT
// DEC-alternate-screen content) is active, swapping cursor state along
// with it as spec §3 requires.
func (b *Buffer) AltBuffer(alt bool) {
	want := 0
	if alt {
		want = 1
	}
	if b.active == want {
		return
	}
	b.savedCursorAddr[b.active] = b.CursorAddr
	b.savedBufferAddr[b.active] = b.BufferAddr
	b.active = want
	b.CursorAddr = b.savedCursorAddr[b.active]
	b.BufferAddr = b.savedBufferAddr[b.active]
	b.CB.ScreenChanged()
}

// Shrink truncates the active dimensions down to the default size
// without touching buffer contents (used when a host negotiates a
// smaller screen than the maximum allocated).
func (b *Buffer) Shrink() {
	b.isAltSize = false
	b.rows, b.cols = b.defRows, b.defCols
	if b.CursorAddr >= b.Size() {
		b.CursorAddr = 0
	}
	if b.BufferAddr >= b.Size() {
		b.BufferAddr = 0
	}
}

// IsAltSize reports whether the screen is currently at alternate (EWA)
// dimensions.
func (b *Buffer) IsAltSize() bool { return b.isAltSize }
