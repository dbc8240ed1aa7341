// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

package nvt

import "github.com/go3270/coreterm/buffer"

// stepEsc dispatches the byte immediately following ESC.
func (p *Processor) stepEsc(c byte) {
	switch c {
	case '[':
		p.csiParams = p.csiParams[:0]
		p.csiPrivate = false
		p.state = StateN1
	case ']':
		p.oscCode = 0
		p.oscText = p.oscText[:0]
		p.state = StateText
	case '(':
		p.csDesTarget = 0
		p.state = StateCSDes
	case ')':
		p.csDesTarget = 1
		p.state = StateCSDes
	case '*':
		p.csDesTarget = 2
		p.state = StateCSDes
	case '+':
		p.csDesTarget = 3
		p.state = StateCSDes
	case '#':
		p.state = StateEscGT
	case '7':
		p.saveCursor()
		p.state = StateData
	case '8':
		p.restoreCursor()
		p.state = StateData
	case 'D':
		p.indexDown()
		p.state = StateData
	case 'E':
		p.newline(true)
		p.state = StateData
	case 'M':
		p.reverseIndex()
		p.state = StateData
	case 'c':
		p.Reset()
	default:
		p.CB.Trace("nvt: unrecognized ESC %q", string(rune(c)))
		p.state = StateData
	}
}

// stepCSDes selects a charset designation for the G-slot chosen by
// stepEsc (spec §4.5 "Save/Restore cursor" / charset model).
func (p *Processor) stepCSDes(c byte) {
	var cs Charset
	switch c {
	case 'A':
		cs = CharsetUK
	case '0':
		cs = CharsetLineDraw
	default:
		cs = CharsetUS
	}
	p.CSD[p.csDesTarget] = cs
	p.state = StateData
}

// stepEscGT handles the byte after "ESC #", currently only DECALN
// (screen alignment test, code '8').
func (p *Processor) stepEscGT(c byte) {
	if c == '8' {
		p.decaln()
	} else {
		p.CB.Trace("nvt: unrecognized ESC # %q", string(rune(c)))
	}
	p.state = StateData
}

func (p *Processor) decaln() {
	b := p.Buf
	for addr := 0; addr < b.Size(); addr++ {
		b.Set(addr, buffer.Cell{UCS4: 'E'})
	}
}

func (p *Processor) indexDown() {
	b := p.Buf
	top, bottom := p.region()
	row, col := p.rowCol(b.CursorAddr)
	if row == bottom-1 {
		b.Scroll(top, bottom, p.FG, p.BG)
		return
	}
	b.CursorAddr = (row+1)*b.Cols() + col
}

func (p *Processor) reverseIndex() {
	b := p.Buf
	top, bottom := p.region()
	row, col := p.rowCol(b.CursorAddr)
	if row == top-1 {
		p.scrollRegionDown(top, bottom)
		return
	}
	b.CursorAddr = (row-1)*b.Cols() + col
}

// scrollRegionDown moves rows [top, bottom-1) down by one within the
// scroll region and blanks the top row (the reverse of buffer.Scroll).
func (p *Processor) scrollRegionDown(top, bottom int) {
	b := p.Buf
	for row := bottom - 1; row > top-1; row-- {
		dst := row * b.Cols()
		src := (row - 1) * b.Cols()
		for i := 0; i < b.Cols(); i++ {
			b.Set(dst+i, b.At(src+i))
		}
	}
	blank := (top - 1) * b.Cols()
	for i := 0; i < b.Cols(); i++ {
		b.Set(blank+i, buffer.Cell{FG: p.FG, BG: p.BG})
	}
}

func (p *Processor) saveCursor() {
	p.saved = SavedCursor{
		CursorAddr: p.Buf.CursorAddr,
		GL:         p.GL,
		CSD:        p.CSD,
		FG:         p.FG,
		BG:         p.BG,
		GR:         p.GR,
	}
}

func (p *Processor) restoreCursor() {
	p.Buf.CursorAddr = p.saved.CursorAddr
	p.GL = p.saved.GL
	p.CSD = p.saved.CSD
	p.FG, p.BG, p.GR = p.saved.FG, p.saved.BG, p.saved.GR
}

// Reset fully reinitializes NVT state (spec §4.5 "Cancellation": on
// 3270-mode transition the NVT machine is fully reset).
func (p *Processor) Reset() {
	p.state = StateData
	p.Mode = ModeWraparound | ModeCursorVisible
	p.GL = 0
	p.CSD = [4]Charset{}
	p.FG, p.BG, p.GR = 0, 0, 0
	p.scrollTop, p.scrollBottom = 0, 0
	p.saved = SavedCursor{}
	p.csiParams = nil
	p.csiPrivate = false
	p.oscCode = 0
	p.oscText = nil
	p.mbBuf = nil
	p.mbWant = 0
	p.Buf.CursorAddr = 0
}
