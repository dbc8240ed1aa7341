// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

package nvt

import "github.com/go3270/coreterm/buffer"

// stepN1 accumulates CSI parameter bytes until a private-mode marker
// ('?') or a final byte in [0x40, 0x7E] (spec §4.5 CSI parsing).
func (p *Processor) stepN1(c byte) {
	switch {
	case c == '?':
		p.csiPrivate = true
		p.state = StateDECP
	case c >= '0' && c <= '9':
		p.accumDigit(c)
	case c == ';':
		p.csiParams = append(p.csiParams, 0)
	case c >= 0x40 && c <= 0x7E:
		p.dispatchCSI(c)
		p.state = StateData
	default:
		p.CB.Trace("nvt: unexpected CSI byte 0x%02x", c)
		p.state = StateData
	}
}

// stepDECP is identical to stepN1 but reached only once a '?' private
// marker has been seen (spec §4.5 "DEC private modes").
func (p *Processor) stepDECP(c byte) {
	switch {
	case c >= '0' && c <= '9':
		p.accumDigit(c)
	case c == ';':
		p.csiParams = append(p.csiParams, 0)
	case c >= 0x40 && c <= 0x7E:
		p.dispatchPrivateCSI(c)
		p.state = StateData
	default:
		p.CB.Trace("nvt: unexpected CSI byte 0x%02x", c)
		p.state = StateData
	}
}

func (p *Processor) accumDigit(c byte) {
	if len(p.csiParams) == 0 {
		p.csiParams = append(p.csiParams, 0)
	}
	last := len(p.csiParams) - 1
	p.csiParams[last] = p.csiParams[last]*10 + int(c-'0')
}

func (p *Processor) param(i, def int) int {
	if i >= len(p.csiParams) || p.csiParams[i] == 0 {
		return def
	}
	return p.csiParams[i]
}

// dispatchCSI handles the non-private CSI final bytes actually exercised
// by 3270 hosts running in NVT mode: cursor movement, erase, SGR, and
// the scroll-region setter.
func (p *Processor) dispatchCSI(final byte) {
	b := p.Buf
	switch final {
	case 'A': // CUU
		p.moveCursorRow(-p.param(0, 1))
	case 'B': // CUD
		p.moveCursorRow(p.param(0, 1))
	case 'C': // CUF
		p.moveCursorCol(p.param(0, 1))
	case 'D': // CUB
		p.moveCursorCol(-p.param(0, 1))
	case 'H', 'f': // CUP / HVP
		row := p.param(0, 1) - 1
		col := p.param(1, 1) - 1
		p.moveCursorTo(row, col)
	case 'J': // ED
		p.eraseDisplay(p.param(0, 0))
	case 'K': // EL
		p.eraseLine(p.param(0, 0))
	case 'm': // SGR
		p.sgr()
	case 'r': // DECSTBM
		top := p.param(0, 1)
		bottom := p.param(1, b.Rows())
		if top < bottom {
			p.scrollTop, p.scrollBottom = top, bottom
		} else {
			p.scrollTop, p.scrollBottom = 0, 0
		}
		b.CursorAddr = 0
	case 'n': // DSR
		if p.param(0, 0) == 6 {
			row, col := p.rowCol(b.CursorAddr)
			p.CB.Trace("nvt: DSR cursor position report %d;%d", row+1, col+1)
		}
	default:
		p.CB.Trace("nvt: unhandled CSI final %q", string(rune(final)))
	}
}

// dispatchPrivateCSI handles "CSI ? Pn h/l" DECSET/DECRST (spec §4.5
// "Modes").
func (p *Processor) dispatchPrivateCSI(final byte) {
	if final != 'h' && final != 'l' {
		p.CB.Trace("nvt: unhandled private CSI final %q", string(rune(final)))
		return
	}
	set := final == 'h'
	for _, code := range p.csiParams {
		var bit Mode
		switch code {
		case 1:
			bit = ModeAppCursor
		case 3:
			bit = ModeCol132
		case 6:
			bit = ModeReverseWrap
		case 7:
			bit = ModeWraparound
		case 25:
			bit = ModeCursorVisible
		case 1049, 47, 1047:
			bit = ModeAltBuffer
		case 20:
			bit = ModeAutoNewline
		default:
			p.CB.Trace("nvt: unhandled DEC private mode %d", code)
			continue
		}
		if set {
			p.Mode |= bit
		} else {
			p.Mode &^= bit
		}
		if bit == ModeAltBuffer {
			p.Buf.AltBuffer(set)
		}
	}
}

func (p *Processor) moveCursorRow(delta int) {
	b := p.Buf
	row, col := p.rowCol(b.CursorAddr)
	row += delta
	if row < 0 {
		row = 0
	}
	if row >= b.Rows() {
		row = b.Rows() - 1
	}
	b.CursorAddr = row*b.Cols() + col
}

func (p *Processor) moveCursorTo(row, col int) {
	b := p.Buf
	if row < 0 {
		row = 0
	}
	if row >= b.Rows() {
		row = b.Rows() - 1
	}
	if col < 0 {
		col = 0
	}
	if col >= b.Cols() {
		col = b.Cols() - 1
	}
	b.CursorAddr = row*b.Cols() + col
}

func (p *Processor) eraseDisplay(mode int) {
	b := p.Buf
	switch mode {
	case 0:
		p.eraseRange(b.CursorAddr, b.Size())
	case 1:
		p.eraseRange(0, b.CursorAddr+1)
	case 2:
		p.eraseRange(0, b.Size())
	}
}

func (p *Processor) eraseLine(mode int) {
	b := p.Buf
	row, col := p.rowCol(b.CursorAddr)
	rowStart := row * b.Cols()
	switch mode {
	case 0:
		p.eraseRange(b.CursorAddr, rowStart+b.Cols())
	case 1:
		p.eraseRange(rowStart, rowStart+col+1)
	case 2:
		p.eraseRange(rowStart, rowStart+b.Cols())
	}
}

func (p *Processor) eraseRange(from, to int) {
	b := p.Buf
	for addr := from; addr < to && addr < b.Size(); addr++ {
		b.Set(addr, buffer.Cell{FG: p.FG, BG: p.BG})
	}
}

// sgr applies the accumulated SGR parameters to the current default
// rendition (spec §3: fg/bg/gr defaults applied to subsequently written
// cells).
func (p *Processor) sgr() {
	if len(p.csiParams) == 0 {
		p.FG, p.BG, p.GR = 0, 0, 0
		return
	}
	for _, code := range p.csiParams {
		switch {
		case code == 0:
			p.FG, p.BG, p.GR = 0, 0, 0
		case code == 1:
			p.GR |= buffer.GRIntensify
		case code == 4:
			p.GR |= buffer.GRUnderline
		case code == 5:
			p.GR |= buffer.GRBlink
		case code == 7:
			p.GR |= buffer.GRReverse
		case code >= 30 && code <= 37:
			p.FG = ansiColor(code - 30)
		case code >= 40 && code <= 47:
			p.BG = ansiColor(code - 40)
		case code == 39:
			p.FG = 0
		case code == 49:
			p.BG = 0
		}
	}
}

// ansiColor maps the 8 basic SGR color indices to the 3270 extended
// color byte range (0xF0-0xFF).
func ansiColor(idx int) byte {
	return 0xF0 + byte(idx)
}
