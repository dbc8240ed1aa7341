// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

// Package field implements the scan-left field-attribute lookup, MDT
// set/clear, and the DBCS left/right/dead/SB classifier described in
// spec §4.2.
package field

import "github.com/go3270/coreterm/buffer"

// LookleftReason explains which rule determined a DBCS side in
// LookleftState.
type LookleftReason int

const (
	ReasonNone LookleftReason = iota
	ReasonField
	ReasonAttribute
	ReasonSubfield
)

// FindFieldAttribute scans left with wraparound from baddr for the
// nearest field-attribute cell. It returns -1 if the screen is
// unformatted (the scan returns to its start without finding one).
func FindFieldAttribute(b *buffer.Buffer, baddr int) int {
	if !b.Formatted {
		return -1
	}
	addr := baddr
	for {
		if b.At(addr).IsFA() {
			return addr
		}
		addr = b.DecBA(addr)
		if addr == baddr {
			return -1
		}
	}
}

// GetFieldAttribute returns the governing FA byte for baddr, or the
// buffer's sentinel default FA when unformatted.
func GetFieldAttribute(b *buffer.Buffer, baddr int) byte {
	addr := FindFieldAttribute(b, baddr)
	if addr < 0 {
		return b.DefaultAttr.FA
	}
	return b.At(addr).FA
}

// GetBoundedFieldAttribute is like FindFieldAttribute but stops (and
// returns -1) if the wraparound scan would cross bound before finding an
// FA.
func GetBoundedFieldAttribute(b *buffer.Buffer, baddr, bound int) int {
	if !b.Formatted {
		return -1
	}
	addr := baddr
	for {
		if b.At(addr).IsFA() {
			return addr
		}
		if addr == bound {
			return -1
		}
		addr = b.DecBA(addr)
		if addr == baddr {
			return -1
		}
	}
}

// NextUnprotected advances cell-by-cell with wraparound from baddr0,
// returning the address immediately after the next FA that is
// unprotected and whose following cell is not itself an FA. Returns 0
// if no such field exists.
func NextUnprotected(b *buffer.Buffer, baddr0 int) int {
	addr := baddr0
	for i := 0; i < b.Size(); i++ {
		addr = b.IncBA(addr)
		cell := b.At(addr)
		if cell.IsFA() && !cell.Protected() {
			next := b.IncBA(addr)
			if !b.At(next).IsFA() {
				return next
			}
		}
		if addr == baddr0 {
			break
		}
	}
	return 0
}

// MDTSet sets the MODIFY bit on baddr's governing FA. If modifiedSel is
// true (the modified_sel knob), the whole screen is reported changed
// instead of just the FA cell.
func MDTSet(b *buffer.Buffer, baddr int, modifiedSel bool) {
	addr := FindFieldAttribute(b, baddr)
	if addr < 0 {
		return
	}
	cell := b.At(addr)
	if cell.FA&buffer.FAModify != 0 {
		return
	}
	cell.FA |= buffer.FAModify
	b.Set(addr, cell)
	if modifiedSel {
		b.CB.ScreenChanged()
	}
}

// MDTClear clears the MODIFY bit on baddr's governing FA.
func MDTClear(b *buffer.Buffer, baddr int, modifiedSel bool) {
	addr := FindFieldAttribute(b, baddr)
	if addr < 0 {
		return
	}
	cell := b.At(addr)
	if cell.FA&buffer.FAModify == 0 {
		return
	}
	cell.FA &^= buffer.FAModify
	b.Set(addr, cell)
	if modifiedSel {
		b.CB.ScreenChanged()
	}
}

// ResetAllMDT clears the MODIFY bit on every FA on the screen (used by
// the WCC reset-MDT bit).
func ResetAllMDT(b *buffer.Buffer) {
	if !b.Formatted {
		return
	}
	for addr := 0; addr < b.Size(); addr++ {
		cell := b.At(addr)
		if cell.IsFA() && cell.FA&buffer.FAModify != 0 {
			cell.FA &^= buffer.FAModify
			b.Set(addr, cell)
		}
	}
}

// isDBCSBase reports whether a cs byte designates the DBCS base set.
func isDBCSBase(cs byte) bool { return cs&buffer.CSDBCS != 0 }

const (
	ebcSO byte = 0x0e
	ebcSI byte = 0x0f
)

// LookleftState classifies baddr as DBCS LEFT, RIGHT, or NONE by walking
// left, per spec §4.2.
func LookleftState(b *buffer.Buffer, baddr int) (buffer.DBState, LookleftReason) {
	faAddr := FindFieldAttribute(b, baddr)
	var faCell buffer.Cell
	if faAddr >= 0 {
		faCell = b.At(faAddr)
	} else {
		faCell = b.DefaultAttr
	}

	if isDBCSBase(faCell.CS) {
		dist := distanceFromFA(b, faAddr, baddr)
		if dist%2 != 0 {
			return buffer.DBLeft, ReasonField
		}
		return buffer.DBRight, ReasonField
	}

	cell := b.At(baddr)
	if isDBCSBase(cell.CS) && cell.EC != ebcSO && cell.EC != ebcSI {
		start := baddr
		addr := baddr
		for {
			prev := b.DecBA(addr)
			if prev == faAddr {
				break
			}
			pc := b.At(prev)
			if !isDBCSBase(pc.CS) || pc.EC == ebcSO || pc.EC == ebcSI {
				break
			}
			addr = prev
			start = addr
		}
		dist := distanceBetween(b, start, baddr)
		if dist%2 == 0 {
			return buffer.DBLeft, ReasonAttribute
		}
		return buffer.DBRight, ReasonAttribute
	}

	// Scan left for an unmatched SO; SI cancels a pending SO.
	addr := baddr
	depth := 0
	for {
		prev := b.DecBA(addr)
		if prev == faAddr {
			break
		}
		pc := b.At(prev)
		if pc.EC == ebcSI {
			depth++
		} else if pc.EC == ebcSO {
			if depth == 0 {
				dist := distanceBetween(b, prev, baddr)
				if dist%2 != 0 {
					return buffer.DBLeft, ReasonSubfield
				}
				return buffer.DBRight, ReasonSubfield
			}
			depth--
		}
		addr = prev
		if addr == baddr {
			break
		}
	}

	return buffer.DBNone, ReasonNone
}

// distanceFromFA returns the forward wraparound distance from faAddr to
// baddr (1 if baddr is immediately after the FA).
func distanceFromFA(b *buffer.Buffer, faAddr, baddr int) int {
	if faAddr < 0 {
		return baddr + 1
	}
	return distanceBetween(b, faAddr, baddr)
}

func distanceBetween(b *buffer.Buffer, from, to int) int {
	if to >= from {
		return to - from
	}
	return b.Size() - from + to
}
