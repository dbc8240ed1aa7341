// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

package nvt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go3270/coreterm/buffer"
)

// Snap reconstructs a minimal NVT byte stream that, if replayed through
// a fresh Processor, recreates the active screen buffer's content and
// the full mode/charset/cursor state, including any multibyte or CSI
// sequence that was in progress (spec §4.5 "snap()"). The buffer
// abstraction only exposes the currently active content plane, so an
// inactive alternate-screen buffer is not itself re-derivable here; see
// DESIGN.md.
func (p *Processor) Snap() []byte {
	var sb strings.Builder

	for _, code := range p.activeModeCodes() {
		fmt.Fprintf(&sb, "\x1b[?%dh", code)
	}
	if p.scrollTop != 0 {
		fmt.Fprintf(&sb, "\x1b[%d;%dr", p.scrollTop, p.scrollBottom)
	}
	for g, cs := range p.CSD {
		sb.WriteByte(0x1B)
		sb.WriteByte(csDesIntroducer(g))
		sb.WriteByte(csDesFinal(cs))
	}

	b := p.Buf
	var lastFG, lastBG, lastGR byte
	for addr := 0; addr < b.Size(); addr++ {
		cell := b.At(addr)
		if cell.FG != lastFG || cell.BG != lastBG || cell.GR != lastGR {
			writeSGR(&sb, cell.FG, cell.BG, cell.GR)
			lastFG, lastBG, lastGR = cell.FG, cell.BG, cell.GR
		}
		if cell.UCS4 != 0 {
			sb.WriteRune(cell.UCS4)
		} else if cell.EC == 0 {
			sb.WriteByte(' ')
		}
	}

	row, col := p.rowCol(b.CursorAddr)
	fmt.Fprintf(&sb, "\x1b[%d;%dH", row+1, col+1)

	sb.Write(p.pendingSequence())

	return []byte(sb.String())
}

// activeModeCodes lists the DEC private mode numbers currently set, in
// the same numbering dispatchPrivateCSI understands.
func (p *Processor) activeModeCodes() []int {
	var codes []int
	check := func(bit Mode, code int) {
		if p.Mode&bit != 0 {
			codes = append(codes, code)
		}
	}
	check(ModeAppCursor, 1)
	check(ModeCol132, 3)
	check(ModeReverseWrap, 6)
	check(ModeWraparound, 7)
	check(ModeCursorVisible, 25)
	check(ModeAutoNewline, 20)
	return codes
}

func csDesIntroducer(gSlot int) byte {
	return "()*+"[gSlot]
}

func csDesFinal(cs Charset) byte {
	switch cs {
	case CharsetUK:
		return 'A'
	case CharsetLineDraw:
		return '0'
	default:
		return 'B'
	}
}

func writeSGR(sb *strings.Builder, fg, bg, gr byte) {
	sb.WriteString("\x1b[0")
	if gr&buffer.GRIntensify != 0 {
		sb.WriteString(";1")
	}
	if gr&buffer.GRUnderline != 0 {
		sb.WriteString(";4")
	}
	if gr&buffer.GRBlink != 0 {
		sb.WriteString(";5")
	}
	if gr&buffer.GRReverse != 0 {
		sb.WriteString(";7")
	}
	if fg >= 0xF0 {
		sb.WriteString(";3" + strconv.Itoa(int(fg-0xF0)))
	}
	if bg >= 0xF0 {
		sb.WriteString(";4" + strconv.Itoa(int(bg-0xF0)))
	}
	sb.WriteByte('m')
}

// pendingSequence re-emits the bytes of whatever escape/CSI/OSC/
// multibyte sequence is currently mid-parse, so replaying Snap's output
// leaves the processor in the same partially-parsed state.
func (p *Processor) pendingSequence() []byte {
	switch p.state {
	case StateMBPend:
		return p.mbBuf
	case StateEsc:
		return []byte{0x1B}
	case StateCSDes:
		return []byte{0x1B, "()*+"[p.csDesTarget]}
	case StateEscGT:
		return []byte{0x1B, '#'}
	case StateN1, StateDECP:
		var sb strings.Builder
		sb.WriteByte(0x1B)
		sb.WriteByte('[')
		if p.csiPrivate {
			sb.WriteByte('?')
		}
		for i, v := range p.csiParams {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteString(strconv.Itoa(v))
		}
		return []byte(sb.String())
	case StateText, StateText2:
		var sb strings.Builder
		sb.WriteByte(0x1B)
		sb.WriteByte(']')
		sb.WriteString(strconv.Itoa(p.oscCode))
		if p.state == StateText2 {
			sb.WriteByte(';')
			sb.Write(p.oscText)
		}
		return []byte(sb.String())
	default:
		return nil
	}
}
