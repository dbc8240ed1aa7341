// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

// Package ctlr implements the 3270 order decoder and inbound encoder
// described in spec §4.3-4.4: it turns a host write data-stream into
// buffer mutations, and turns buffer/keyboard state back into an
// outbound AID-prefixed byte stream.
package ctlr

import (
	"fmt"

	"github.com/go3270/coreterm/buffer"
	"github.com/go3270/coreterm/dbcs"
	"github.com/go3270/coreterm/field"
)

// Command bytes, both the "normal" and "SNA" forms (spec §6).
const (
	CmdEAU byte = 0x6F
	CmdEAUSNA byte = 0x0F
	CmdEW  byte = 0xF5
	CmdEWSNA byte = 0x05
	CmdEWA byte = 0x7E
	CmdEWASNA byte = 0x0D
	CmdW   byte = 0xF1
	CmdWSNA byte = 0x01
	CmdRB  byte = 0xF2
	CmdRBSNA byte = 0x02
	CmdRM  byte = 0xF6
	CmdRMSNA byte = 0x06
	CmdRMA byte = 0x6E
	CmdRMASNA byte = 0x0E
	CmdWSF byte = 0xF3
	CmdWSFSNA byte = 0x11
	CmdNOP byte = 0x03
)

// Order bytes recognized inside a write data stream.
const (
	OrderSF  byte = 0x1D
	OrderSFE byte = 0x29
	OrderSBA byte = 0x11
	OrderIC  byte = 0x13
	OrderPT  byte = 0x05
	OrderRA  byte = 0x3C
	OrderEUA byte = 0x12
	OrderGE  byte = 0x08
	OrderMF  byte = 0x2C
	OrderSA  byte = 0x28
)

// Format-control characters, written literally into cells (spec §4.3).
const (
	FCSUB byte = 0x3F
	FCDUP byte = 0x1C
	FCFM  byte = 0x1E
	FCFF  byte = 0x0C
	FCCR  byte = 0x0D
	FCNL  byte = 0x15
	FCEM  byte = 0x19
	FCLF  byte = 0x25
	FCEO  byte = 0xFF
)

const (
	ebcSO   byte = 0x0e
	ebcSI   byte = 0x0f
	ebcNull byte = 0x00
)

// SA attribute-type bytes used by both SFE/MF pairs and the SA order.
const (
	SATypeAll       byte = 0x00
	SATypeFG        byte = 0xC1
	SATypeBG        byte = 0xC2
	SATypeGR        byte = 0x41
	SATypeCS        byte = 0x43
	SATypeIC        byte = 0xFE
	SATypeFieldType byte = 0xC0 // the 3270-type pair in SFE/MF
)

// Charset values carried in an SA/SFE charset pair.
const (
	CSValueAPL  byte = 0xF1
	CSValueDBCS byte = 0xF8
)

// WCC bits, as the second byte of EW/EWA/W.
const (
	WCCReset          byte = 0x40
	WCCSoundAlarm     byte = 0x04
	WCCKeyboardRestore byte = 0x02
	WCCResetMDT       byte = 0x01
)

// Status is the outcome of processing one write data-stream.
type Status int

const (
	StatusOK Status = iota
	StatusBadCmd
	StatusBadAddr
)

// OIA abstracts the subset of OIA/AID state the decoder reads and
// mutates; the controller package supplies the concrete implementation.
type OIA interface {
	AID() byte
	SetAID(byte)
	Unlock()
	IsTWait() bool
	SetSyswait()
}

// Decoder decodes 3270 write data streams into buffer mutations.
type Decoder struct {
	Buf *buffer.Buffer
	CB  buffer.Callbacks
	OIA OIA

	// ColorDisplay gates whether SFE/SA foreground/background values take
	// effect (spec §4.3 SFE).
	ColorDisplay bool
	// DBCSSupported gates whether SFE/MF input-control pairs are honored
	// and whether the DBCS post-processor runs after a write or EAU.
	DBCSSupported bool
	// ReplyMode is the Read-Buffer reply mode negotiated by the host:
	// 0=FIELD, 1=EXTENDED, 2=CHARACTER.
	ReplyMode int

	// Default SA state (spec §4.3 SA order / §3).
	DefFG, DefBG, DefGR, DefCS, DefIC byte

	pendingIC    bool
	pendingICAddr int
	lastWasOrder bool
	lastNullPTEnd bool

	badCmdMsg string
}

const (
	ReplyModeField = iota
	ReplyModeExtended
	ReplyModeCharacter
)

// ProcessDS is the entry point (spec §4.3): it branches on buf[0] and
// returns the resulting status.
func (d *Decoder) ProcessDS(buf []byte, kybdRestore bool) Status {
	if len(buf) == 0 {
		return StatusBadCmd
	}
	switch buf[0] {
	case CmdEAU, CmdEAUSNA:
		d.eraseAllUnprotected()
		return StatusOK
	case CmdEW, CmdEWSNA:
		d.Buf.Erase(false)
		return d.write(buf, false, kybdRestore)
	case CmdEWA, CmdEWASNA:
		d.Buf.Erase(true)
		return d.write(buf, true, kybdRestore)
	case CmdW, CmdWSNA:
		return d.write(buf, false, kybdRestore)
	case CmdRB, CmdRBSNA:
		// Emission is the caller's responsibility via Encoder.ReadBuffer;
		// process_ds only validates that the command is well-formed.
		return StatusOK
	case CmdRM, CmdRMSNA:
		return StatusOK
	case CmdRMA, CmdRMASNA:
		return StatusOK
	case CmdWSF, CmdWSFSNA:
		// Structured fields are dispatched externally (spec §4.3).
		return StatusOK
	case CmdNOP:
		return StatusOK
	default:
		d.badCmdMsg = fmt.Sprintf("unrecognized command byte 0x%02x", buf[0])
		d.CB.Trace("ctlr: %s", d.badCmdMsg)
		return StatusBadCmd
	}
}

func (d *Decoder) eraseAllUnprotected() {
	b := d.Buf
	if !b.Formatted {
		b.Clear(true)
	} else {
		for addr := 0; addr < b.Size(); addr++ {
			cell := b.At(addr)
			if cell.IsFA() {
				if !cell.Protected() {
					cell.FA &^= buffer.FAModify
					b.Set(addr, cell)
				}
				continue
			}
			faAddr := field.FindFieldAttribute(b, addr)
			protected := faAddr < 0 || b.At(faAddr).Protected()
			if !protected && (cell.EC != 0 || cell.UCS4 != 0) {
				b.AddChar(addr, 0, 0)
			}
		}
	}
	d.OIA.SetAID(0)
	d.OIA.Unlock()
	if d.DBCSSupported {
		dbcs.Process(b, d.CB)
	}
	d.CB.TaskHostOutput()
}

// write implements the shared write(buf, erase) logic (spec §4.3).
// kybdRestore mirrors the caller-supplied override ProcessDS receives
// from the SNA/non-SNA command framing: some hosts request an unlock
// independent of the WCC keyboard-restore bit, and this ORs into that
// check rather than replacing it.
func (d *Decoder) write(buf []byte, erase, kybdRestore bool) Status {
	if len(buf) < 2 {
		return StatusBadCmd
	}
	wcc := buf[1]
	if wcc&WCCReset != 0 {
		d.DefFG, d.DefBG, d.DefGR, d.DefCS, d.DefIC = 0, 0, 0, 0, 0
		if erase {
			d.ReplyMode = ReplyModeField
		}
	}
	if wcc&WCCResetMDT != 0 {
		field.ResetAllMDT(d.Buf)
	}

	b := d.Buf
	b.BufferAddr = b.CursorAddr
	d.pendingIC = false
	d.lastWasOrder = false
	d.lastNullPTEnd = false

	status := StatusOK
	i := 2
	for i < len(buf) {
		c := buf[i]
		var consumed int
		var ok bool
		consumed, ok = d.processOrder(buf, i, c)
		if !ok {
			status = StatusBadAddr
			break
		}
		i += consumed
	}

	if d.pendingIC {
		b.CursorAddr = d.pendingICAddr
	}
	if wcc&WCCKeyboardRestore != 0 || kybdRestore {
		d.OIA.SetAID(0)
		d.OIA.Unlock()
	} else if d.OIA.IsTWait() {
		d.OIA.SetSyswait()
	}
	if wcc&WCCSoundAlarm != 0 {
		d.CB.RingBell()
	}

	if d.DBCSSupported {
		dbcs.Process(b, d.CB)
	}
	d.CB.TaskHostOutput()

	return status
}

// processOrder handles one order or data byte at buf[i], returning how
// many bytes were consumed and whether processing may continue.
func (d *Decoder) processOrder(buf []byte, i int, c byte) (int, bool) {
	b := d.Buf

	switch {
	case c == OrderSF:
		if i+1 >= len(buf) {
			return 0, false
		}
		fa := buf[i+1]
		b.AddFA(b.BufferAddr, fa, 0)
		b.BufferAddr = b.IncBA(b.BufferAddr)
		d.lastWasOrder = true
		return 2, true

	case c == OrderSFE:
		if i+1 >= len(buf) {
			return 0, false
		}
		n := int(buf[i+1])
		pos := i + 2
		var fa byte
		var fg, bg, gr, cs, ic byte
		haveFG, haveBG, haveGR, haveCS, haveIC := false, false, false, false, false
		for j := 0; j < n; j++ {
			if pos+1 >= len(buf) {
				return 0, false
			}
			typ, val := buf[pos], buf[pos+1]
			switch typ {
			case SATypeFieldType:
				fa = val
			case SATypeFG:
				fg, haveFG = val, true
			case SATypeBG:
				bg, haveBG = val, true
			case SATypeGR:
				gr, haveGR = val, true
			case SATypeCS:
				cs, haveCS = val, true
			case SATypeIC:
				ic, haveIC = val, true
			default:
				d.CB.Trace("ctlr: SFE unknown attribute type 0x%02x, skipped", typ)
			}
			pos += 2
		}
		b.AddFA(b.BufferAddr, fa, d.resolveCS(cs, haveCS))
		if haveFG && d.ColorDisplay {
			b.AddFG(b.BufferAddr, fg)
		}
		if haveBG && d.ColorDisplay {
			b.AddBG(b.BufferAddr, bg)
		}
		if haveGR {
			b.AddGR(b.BufferAddr, gr)
		}
		if haveIC && d.DBCSSupported {
			b.AddIC(b.BufferAddr, ic)
		}
		b.BufferAddr = b.IncBA(b.BufferAddr)
		d.lastWasOrder = true
		return 2 + 2*n, true

	case c == OrderSBA:
		if i+2 >= len(buf) {
			return 0, false
		}
		addr, ok := decodeBufferAddress(buf[i+1], buf[i+2], b.Size())
		if !ok {
			d.CB.Trace("ctlr: SBA address out of range")
			return 0, false
		}
		b.BufferAddr = addr
		d.lastWasOrder = true
		return 3, true

	case c == OrderIC:
		d.pendingIC = true
		d.pendingICAddr = b.BufferAddr
		d.lastWasOrder = true
		return 1, true

	case c == OrderPT:
		cell := b.At(b.BufferAddr)
		var target int
		if cell.IsFA() && !cell.Protected() {
			target = b.IncBA(b.BufferAddr)
		} else {
			target = field.NextUnprotected(b, b.BufferAddr)
		}
		if !d.lastWasOrder && !(d.lastNullPTEnd && target == 0) {
			d.nullFillRange(b.BufferAddr, target)
		}
		d.lastNullPTEnd = target == 0
		b.BufferAddr = target
		d.lastWasOrder = true
		return 1, true

	case c == OrderRA:
		if i+3 >= len(buf) {
			return 0, false
		}
		stopAddr, ok := decodeBufferAddress(buf[i+1], buf[i+2], b.Size())
		if !ok {
			return 0, false
		}
		pos := i + 3
		ch := buf[pos]
		consumed := 4
		if ch == OrderGE {
			if pos+1 >= len(buf) {
				return 0, false
			}
			pos++
			ch = buf[pos]
			consumed++
		}
		cs := d.DefCS
		if d.isDBCSContext(b.BufferAddr) {
			if pos+1 >= len(buf) {
				return 0, false
			}
			ch2 := buf[pos+1]
			consumed++
			cs = buffer.CSDBCS
			addr := b.BufferAddr
			for addr != stopAddr {
				b.AddChar(addr, ch, cs)
				b.AddFG(addr, d.DefFG)
				b.AddBG(addr, d.DefBG)
				b.AddGR(addr, d.DefGR)
				addr = b.IncBA(addr)
				if addr == stopAddr {
					break
				}
				b.AddChar(addr, ch2, cs)
				b.AddFG(addr, d.DefFG)
				b.AddBG(addr, d.DefBG)
				b.AddGR(addr, d.DefGR)
				addr = b.IncBA(addr)
			}
		} else {
			addr := b.BufferAddr
			for addr != stopAddr {
				b.AddChar(addr, ch, cs)
				b.AddFG(addr, d.DefFG)
				b.AddBG(addr, d.DefBG)
				b.AddGR(addr, d.DefGR)
				addr = b.IncBA(addr)
			}
		}
		b.BufferAddr = stopAddr
		d.lastWasOrder = true
		return consumed, true

	case c == OrderEUA:
		if i+2 >= len(buf) {
			return 0, false
		}
		stopAddr, ok := decodeBufferAddress(buf[i+1], buf[i+2], b.Size())
		if !ok {
			return 0, false
		}
		addr := b.BufferAddr
		for addr != stopAddr {
			cell := b.At(addr)
			if cell.DB == buffer.DBLeft || cell.DB == buffer.DBRight {
				d.CB.Trace("ctlr: EUA would split a DBCS pair at %d", addr)
				return 0, false
			}
			if !cell.IsFA() {
				faAddr := field.FindFieldAttribute(b, addr)
				protected := faAddr >= 0 && b.At(faAddr).Protected()
				if !protected {
					b.AddChar(addr, 0, 0)
				}
			}
			addr = b.IncBA(addr)
		}
		b.BufferAddr = stopAddr
		d.lastWasOrder = true
		return 3, true

	case c == OrderGE:
		if i+1 >= len(buf) {
			return 0, false
		}
		ch := buf[i+1]
		b.AddChar(b.BufferAddr, ch, buffer.CSGE)
		b.AddFG(b.BufferAddr, d.DefFG)
		b.AddBG(b.BufferAddr, d.DefBG)
		b.AddGR(b.BufferAddr, d.DefGR)
		b.AddIC(b.BufferAddr, d.DefIC)
		b.BufferAddr = b.IncBA(b.BufferAddr)
		d.lastWasOrder = true
		return 2, true

	case c == OrderMF:
		if i+1 >= len(buf) {
			return 0, false
		}
		n := int(buf[i+1])
		pos := i + 2
		cell := b.At(b.BufferAddr)
		if cell.IsFA() {
			for j := 0; j < n; j++ {
				if pos+1 >= len(buf) {
					return 0, false
				}
				typ, val := buf[pos], buf[pos+1]
				switch typ {
				case SATypeFieldType:
					cell.FA = val
				case SATypeGR:
					cell.GR = val
				case SATypeCS:
					cell.CS = d.resolveCSByte(val)
				case SATypeFG:
					if d.ColorDisplay {
						cell.FG = val
					}
				case SATypeBG:
					if d.ColorDisplay {
						cell.BG = val
					}
				case SATypeIC:
					if d.DBCSSupported {
						cell.IC = val
					}
				default:
					d.CB.Trace("ctlr: MF unknown attribute type 0x%02x, skipped", typ)
				}
				pos += 2
			}
			b.Set(b.BufferAddr, cell)
		}
		b.BufferAddr = b.IncBA(b.BufferAddr)
		d.lastWasOrder = true
		return 2 + 2*n, true

	case c == OrderSA:
		if i+2 >= len(buf) {
			return 0, false
		}
		typ, val := buf[i+1], buf[i+2]
		switch typ {
		case SATypeAll:
			d.DefFG, d.DefBG, d.DefGR, d.DefCS, d.DefIC = 0, 0, 0, 0, 0
		case SATypeFG:
			d.DefFG = val
		case SATypeBG:
			d.DefBG = val
		case SATypeGR:
			d.DefGR = val
		case SATypeCS:
			d.DefCS = d.resolveCSByte(val)
		case SATypeIC:
			d.DefIC = val
		default:
			d.CB.Trace("ctlr: SA unknown attribute type 0x%02x, skipped", typ)
		}
		d.lastWasOrder = true
		return 3, true

	case isFormatControl(c):
		if d.isDBCSContext(b.BufferAddr) {
			d.CB.Trace("ctlr: format control 0x%02x refused in DBCS field", c)
			return 0, false
		}
		d.writeDataCell(c, d.DefCS)
		d.lastWasOrder = false
		return 1, true

	case c == ebcSO:
		if d.isDBCSContext(b.BufferAddr) || d.precededBySO() {
			d.CB.Trace("ctlr: SO rejected at %d", b.BufferAddr)
			return 0, false
		}
		d.writeDataCell(c, 0)
		d.lastWasOrder = false
		return 1, true

	case c == ebcSI:
		if !d.hasMatchingSO() {
			d.CB.Trace("ctlr: SI without matching SO at %d", b.BufferAddr)
			return 0, false
		}
		d.writeDataCell(c, 0)
		d.lastWasOrder = false
		return 1, true

	case c == ebcNull:
		if d.isDBCSContext(b.BufferAddr) {
			if i+1 >= len(buf) {
				return 0, false
			}
			c2 := buf[i+1]
			if isFieldStart(c2) && !isDBCSControl(c2) {
				// c2 is the lead byte of a following SF/SFE order, not
				// DBCS data: the "dead position" rule leaves it
				// unconsumed for the next loop iteration.
				d.writeDataCell(c, buffer.CSDBCS)
				d.lastWasOrder = false
				return 1, true
			}
			if !isDBCSControl(c2) {
				d.CB.Trace("ctlr: invalid DBCS control byte after NULL at %d", b.BufferAddr)
				return 0, false
			}
			d.writeDataCell(c, buffer.CSDBCS)
			b.BufferAddr = b.IncBA(b.BufferAddr)
			d.writeDataCell(c2, buffer.CSDBCS)
			d.lastWasOrder = false
			return 2, true
		}
		d.writeDataCell(c, d.DefCS)
		d.lastWasOrder = false
		return 1, true

	case c < 0x40:
		d.CB.Trace("ctlr: unrecognized order byte 0x%02x, skipped", c)
		return 1, true

	default: // printable, c >= 0x40
		if d.isDBCSContext(b.BufferAddr) {
			if i+1 >= len(buf) {
				return 0, false
			}
			c2 := buf[i+1]
			d.writeDataCell(c, buffer.CSDBCS)
			b.BufferAddr = b.IncBA(b.BufferAddr)
			d.writeDataCell(c2, buffer.CSDBCS)
			d.lastWasOrder = false
			return 2, true
		}
		d.writeDataCell(c, d.DefCS)
		d.lastWasOrder = false
		return 1, true
	}
}

func (d *Decoder) writeDataCell(c byte, cs byte) {
	b := d.Buf
	b.AddChar(b.BufferAddr, c, cs)
	b.AddFG(b.BufferAddr, d.DefFG)
	b.AddBG(b.BufferAddr, d.DefBG)
	b.AddGR(b.BufferAddr, d.DefGR)
	b.AddIC(b.BufferAddr, d.DefIC)
	b.BufferAddr = b.IncBA(b.BufferAddr)
}

func (d *Decoder) nullFillRange(from, to int) {
	b := d.Buf
	addr := from
	for addr != to {
		b.AddChar(addr, 0, 0)
		b.AddFG(addr, 0)
		b.AddBG(addr, 0)
		b.AddGR(addr, 0)
		b.AddIC(addr, 0)
		addr = b.IncBA(addr)
	}
}

func (d *Decoder) resolveCS(cs byte, have bool) byte {
	if !have {
		return 0
	}
	return d.resolveCSByte(cs)
}

func (d *Decoder) resolveCSByte(cs byte) byte {
	switch cs {
	case CSValueAPL:
		return buffer.CSGE
	case CSValueDBCS:
		return buffer.CSDBCS
	default:
		return 0
	}
}

// isDBCSContext reports whether baddr's governing field is a DBCS field.
func (d *Decoder) isDBCSContext(baddr int) bool {
	faAddr := field.FindFieldAttribute(d.Buf, baddr)
	if faAddr < 0 {
		return d.Buf.DefaultAttr.CS&buffer.CSDBCS != 0
	}
	return d.Buf.At(faAddr).CS&buffer.CSDBCS != 0
}

func (d *Decoder) precededBySO() bool {
	b := d.Buf
	faAddr := field.FindFieldAttribute(b, b.BufferAddr)
	addr := b.DecBA(b.BufferAddr)
	if addr == faAddr {
		return false
	}
	return b.At(addr).EC == ebcSO
}

func (d *Decoder) hasMatchingSO() bool {
	b := d.Buf
	faAddr := field.FindFieldAttribute(b, b.BufferAddr)
	addr := b.BufferAddr
	depth := 0
	for {
		prev := b.DecBA(addr)
		if prev == faAddr {
			return false
		}
		pc := b.At(prev)
		if pc.EC == ebcSI {
			depth++
		} else if pc.EC == ebcSO {
			if depth == 0 {
				return true
			}
			depth--
		}
		addr = prev
		if addr == b.BufferAddr {
			return false
		}
	}
}

func isFormatControl(c byte) bool {
	switch c {
	case FCSUB, FCDUP, FCFM, FCFF, FCCR, FCNL, FCEM, FCLF, FCEO:
		return true
	}
	return false
}

func isDBCSControl(c byte) bool {
	switch c {
	case ebcSO, ebcSI, ebcNull:
		return true
	}
	return isFormatControl(c)
}

func isFieldStart(c byte) bool {
	return c == OrderSF || c == OrderSFE
}

// decodeBufferAddress decodes a 12-bit or 14-bit SBA/RA/EUA address per
// spec §4.3, returning ok=false if out of range.
func decodeBufferAddress(a1, a2 byte, size int) (int, bool) {
	var addr int
	top2 := a1 & 0xC0
	if top2 == 0x00 {
		addr = int(a1&0x3F)<<8 | int(a2)
	} else {
		addr = int(a1&0x3F)<<6 | int(a2&0x3F)
	}
	if addr >= size {
		return 0, false
	}
	return addr, true
}
