// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

package ctlr

import (
	"github.com/go3270/coreterm/buffer"
	"github.com/go3270/coreterm/field"
)

// AID bytes (spec §6 glossary; "short" AIDs skip field content entirely
// on Read-Modified).
const (
	AIDNone     byte = 0x60
	AIDEnter    byte = 0x7D
	AIDPA1      byte = 0x6C
	AIDPA2      byte = 0x6E
	AIDPA3      byte = 0x6B
	AIDClear    byte = 0x6D
	AIDSelect   byte = 0x7E
	AIDSysReq   byte = 0xF0
	AIDPF1      byte = 0xF1
	AIDPF2      byte = 0xF2
	AIDPF3      byte = 0xF3
	AIDPF4      byte = 0xF4
	AIDPF5      byte = 0xF5
	AIDPF6      byte = 0xF6
	AIDPF7      byte = 0xF7
	AIDPF8      byte = 0xF8
	AIDPF9      byte = 0xF9
	AIDPF10     byte = 0x7A
	AIDPF11     byte = 0x7B
	AIDPF12     byte = 0x7C
)

// bufferAddrCodes is the 64-entry EBCDIC code table spec §4.4 requires
// for 12-bit buffer address encoding: each 6-bit group is translated
// through this table before being written to the wire.
var bufferAddrCodes = [64]byte{
	0x40, 0xC1, 0xC2, 0xC3, 0xC4, 0xC5, 0xC6, 0xC7,
	0xC8, 0xC9, 0x4A, 0x4B, 0x4C, 0x4D, 0x4E, 0x4F,
	0x50, 0xD1, 0xD2, 0xD3, 0xD4, 0xD5, 0xD6, 0xD7,
	0xD8, 0xD9, 0x5A, 0x5B, 0x5C, 0x5D, 0x5E, 0x5F,
	0x60, 0x61, 0xE2, 0xE3, 0xE4, 0xE5, 0xE6, 0xE7,
	0xE8, 0xE9, 0x6A, 0x6B, 0x6C, 0x6D, 0x6E, 0x6F,
	0xF0, 0xF1, 0xF2, 0xF3, 0xF4, 0xF5, 0xF6, 0xF7,
	0xF8, 0xF9, 0x7A, 0x7B, 0x7C, 0x7D, 0x7E, 0x7F,
}

// isShortAID reports whether an AID carries no field content on
// Read-Modified (spec §4.4).
func isShortAID(aid byte) bool {
	switch aid {
	case AIDPA1, AIDPA2, AIDPA3, AIDClear, AIDSelect:
		return true
	}
	return false
}

// Encoder implements the inbound (terminal-to-host) encoding described
// in spec §4.4.
type Encoder struct {
	Buf *buffer.Buffer

	// ExtendedAttrs is the set of extended attribute types the host has
	// subscribed to via Set-Reply-Mode (CHARACTER mode only).
	ExtendedAttrs map[byte]bool

	// SSCPStart is the address Read-Modified begins scanning from when
	// InSSCP is true (spec §4.4 / SUPPLEMENTED FEATURES).
	InSSCP    bool
	SSCPStart int

	replyModeFn    func() int
	colorEnabledFn func() bool
}

// encodeAddr appends a buffer address in 12- or 14-bit form depending on
// whether the screen exceeds 4096 cells (spec §4.4).
func (e *Encoder) encodeAddr(out []byte, addr int) []byte {
	if e.Buf.Size() > 4096 {
		return append(out, byte((addr>>8)&0x3F), byte(addr&0xFF))
	}
	hi := bufferAddrCodes[(addr>>6)&0x3F]
	lo := bufferAddrCodes[addr&0x3F]
	return append(out, hi, lo)
}

// ReadBuffer implements the Read-Buffer order (spec §4.4): walk every
// cell, emitting SF/SFE for field attributes and SA-delta-coded content
// for data cells.
func (e *Encoder) ReadBuffer(aid byte) []byte {
	b := e.Buf
	out := make([]byte, 0, b.Size()+8)
	out = append(out, aid)
	out = e.encodeAddr(out, b.CursorAddr)

	var lastFG, lastBG, lastGR, lastIC byte
	for addr := 0; addr < b.Size(); addr++ {
		cell := b.At(addr)
		if cell.IsFA() {
			if e.ReplyMode() == ReplyModeField {
				out = append(out, OrderSF, cell.FA)
			} else {
				pairs := [][2]byte{{SATypeFieldType, cell.FA}}
				if cell.GR != 0 {
					pairs = append(pairs, [2]byte{SATypeGR, cell.GR})
				}
				if cell.CS != 0 {
					pairs = append(pairs, [2]byte{SATypeCS, csToWire(cell.CS)})
				}
				if e.colorEnabled() && cell.FG != 0 {
					pairs = append(pairs, [2]byte{SATypeFG, cell.FG})
				}
				if e.colorEnabled() && cell.BG != 0 {
					pairs = append(pairs, [2]byte{SATypeBG, cell.BG})
				}
				out = append(out, OrderSFE, byte(len(pairs)))
				for _, p := range pairs {
					out = append(out, p[0], p[1])
				}
			}
			lastFG, lastBG, lastGR, lastIC = 0, 0, 0, 0
			continue
		}

		if e.ReplyMode() == ReplyModeCharacter {
			if e.attrSubscribed(SATypeFG) && cell.FG != lastFG {
				out = append(out, OrderSA, SATypeFG, cell.FG)
				lastFG = cell.FG
			}
			if e.attrSubscribed(SATypeBG) && cell.BG != lastBG {
				out = append(out, OrderSA, SATypeBG, cell.BG)
				lastBG = cell.BG
			}
			if e.attrSubscribed(SATypeGR) && cell.GR != lastGR {
				out = append(out, OrderSA, SATypeGR, cell.GR)
				lastGR = cell.GR
			}
			if e.attrSubscribed(SATypeIC) && cell.IC != lastIC {
				out = append(out, OrderSA, SATypeIC, cell.IC)
				lastIC = cell.IC
			}
		}
		if cell.CS&buffer.CSGE != 0 {
			out = append(out, OrderGE)
		}
		out = append(out, cell.EC)
	}
	return out
}

// ReadModified implements Read-Modified / Read-Modified-All (spec
// §4.4).
func (e *Encoder) ReadModified(aid byte, all bool) []byte {
	b := e.Buf
	out := make([]byte, 0, 64)
	out = append(out, aid)
	if isShortAID(aid) {
		return out
	}
	out = e.encodeAddr(out, b.CursorAddr)

	if !b.Formatted {
		return e.readModifiedUnformatted(out)
	}

	start := 0
	if e.InSSCP {
		start = e.SSCPStart
	}
	faAddr := start
	if !b.At(faAddr).IsFA() {
		faAddr = field.FindFieldAttribute(b, start)
		if faAddr < 0 {
			return out
		}
	}

	firstFA := faAddr
	for {
		fa := b.At(faAddr)
		if all || fa.FA&buffer.FAModify != 0 {
			contentStart := b.IncBA(faAddr)
			out = e.encodeAddr(append(out, OrderSBA), contentStart)
			addr := contentStart
			for !b.At(addr).IsFA() {
				c := b.At(addr)
				if c.EC != 0 {
					out = append(out, c.EC)
				}
				addr = b.IncBA(addr)
			}
		}
		// advance to the next FA going forward with wraparound
		nextAddr := faAddr
		for {
			nextAddr = b.IncBA(nextAddr)
			if b.At(nextAddr).IsFA() {
				break
			}
		}
		faAddr = nextAddr
		if faAddr == firstFA {
			break
		}
	}
	return out
}

func (e *Encoder) readModifiedUnformatted(out []byte) []byte {
	b := e.Buf
	start := 0
	if e.InSSCP {
		start = e.SSCPStart
	}
	count := 0
	addr := start
	for i := 0; i < b.Size(); i++ {
		c := b.At(addr)
		if c.EC != 0 {
			out = append(out, c.EC)
			count++
			if e.InSSCP && count >= 255 {
				break
			}
		}
		addr = b.IncBA(addr)
	}
	return out
}

// Snapshot implements the tracing re-synchronization encoder (spec
// §4.4): EW/EWA with a WCC whose reset bit zeroes the decoder's default
// SA state, then for each cell either an SFE carrying its field and
// extended attributes, or SA orders for every change in foreground,
// background or highlighting followed by an optional GE and the
// character, then SBA+IC for the cursor. Input control and the DBCS
// charset of data cells are not emitted.
func (e *Encoder) Snapshot() []byte {
	b := e.Buf
	cmd := CmdEW
	if b.IsAltSize() {
		cmd = CmdEWA
	}
	out := []byte{cmd, WCCReset | WCCResetMDT}

	var lastFG, lastBG, lastGR byte

	for addr := 0; addr < b.Size(); addr++ {
		cell := b.At(addr)
		if cell.IsFA() {
			pairs := [][2]byte{{SATypeFieldType, cell.FA}}
			if cell.GR != 0 {
				pairs = append(pairs, [2]byte{SATypeGR, cell.GR})
			}
			if cell.CS != 0 {
				pairs = append(pairs, [2]byte{SATypeCS, csToWire(cell.CS)})
			}
			if cell.FG != 0 {
				pairs = append(pairs, [2]byte{SATypeFG, cell.FG})
			}
			if cell.BG != 0 {
				pairs = append(pairs, [2]byte{SATypeBG, cell.BG})
			}
			out = append(out, OrderSFE, byte(len(pairs)))
			for _, p := range pairs {
				out = append(out, p[0], p[1])
			}
			continue
		}
		if cell.FG != lastFG {
			out = append(out, OrderSA, SATypeFG, cell.FG)
			lastFG = cell.FG
		}
		if cell.BG != lastBG {
			out = append(out, OrderSA, SATypeBG, cell.BG)
			lastBG = cell.BG
		}
		if cell.GR != lastGR {
			out = append(out, OrderSA, SATypeGR, cell.GR)
			lastGR = cell.GR
		}
		if cell.CS&buffer.CSGE != 0 {
			out = append(out, OrderGE)
		}
		out = append(out, cell.EC)
	}

	out = append(out, OrderSBA)
	out = e.encodeAddr(out, b.CursorAddr)
	out = append(out, OrderIC)
	return out
}

func csToWire(cs byte) byte {
	switch {
	case cs&buffer.CSDBCS != 0:
		return CSValueDBCS
	case cs&buffer.CSGE != 0:
		return CSValueAPL
	default:
		return 0
	}
}

// replyMode and colorEnabled/attrSubscribed are small seams so the
// caller (the controller package) can reconfigure Read-Buffer behavior
// without the Encoder depending on the Decoder directly.
func (e *Encoder) ReplyMode() int {
	if e.replyModeFn != nil {
		return e.replyModeFn()
	}
	return ReplyModeField
}

func (e *Encoder) colorEnabled() bool {
	if e.colorEnabledFn != nil {
		return e.colorEnabledFn()
	}
	return false
}

func (e *Encoder) attrSubscribed(typ byte) bool {
	return e.ExtendedAttrs != nil && e.ExtendedAttrs[typ]
}

// SetReplyModeFunc and SetColorEnabledFunc wire the Encoder to the
// Decoder's live ReplyMode/ColorDisplay state.
func (e *Encoder) SetReplyModeFunc(f func() int)     { e.replyModeFn = f }
func (e *Encoder) SetColorEnabledFunc(f func() bool) { e.colorEnabledFn = f }
