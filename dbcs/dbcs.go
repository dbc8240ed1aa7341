// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

// Package dbcs implements the post-write DBCS (double-byte character
// set) normalization pass described in spec §4.6: it walks the buffer
// after every 3270 write, every NVT batch, and after scroll, tagging
// each cell's DB state and repairing or rejecting invalid SO/SI/LEFT-
// RIGHT sequences.
package dbcs

import (
	"github.com/go3270/coreterm/buffer"
	"github.com/go3270/coreterm/field"
)

const (
	ebcSO   byte = 0x0e
	ebcSI   byte = 0x0f
	ebcNull byte = 0x00
)

// Result reports whether Process found a violation worth surfacing to
// the caller as a protocol error (the buffer is always normalized
// regardless).
type Result struct {
	OK        bool
	Violation string
}

// Process walks the active buffer starting just after the FA at index 0
// (or from index 0 if unformatted), normalizing DBCS state.
func Process(b *buffer.Buffer, cb buffer.Callbacks) Result {
	if cb == nil {
		cb = buffer.NopCallbacks{}
	}
	res := Result{OK: true}

	start := 0
	if b.Formatted {
		start = b.IncBA(0)
	}

	so := false
	pendingSB := false // next cell should be tagged DBSB (just saw SI)
	dbcsField := isDBCSField(b, start)
	dbaddr := -1 // start of the current DBCS run, -1 if none pending

	// killPendingLeft marks a dangling LEFT cell DEAD when the run is
	// interrupted by an FA, SO, or SI before a RIGHT half arrives (spec
	// §4.6, §8 "the next cell has cell.db ∈ {RIGHT, RIGHT_WRAP}").
	killPendingLeft := func() {
		if dbaddr < 0 {
			return
		}
		dead := b.At(dbaddr)
		dead.EC = ebcNull
		dead.DB = buffer.DBDead
		b.Set(dbaddr, dead)
		dbaddr = -1
	}

	addr := start
	for i := 0; i < b.Size(); i++ {
		cell := b.At(addr)

		if cell.IsFA() {
			killPendingLeft()
			dbcsField = cell.CS&buffer.CSDBCS != 0
			so = false
			pendingSB = false
			cell.DB = buffer.DBNone
			b.Set(addr, cell)
			addr = b.IncBA(addr)
			continue
		}

		switch cell.EC {
		case ebcSO:
			if so || dbcsField {
				cb.Trace("dbcs: rejecting SO at %d (so=%v dbcsField=%v)", addr, so, dbcsField)
				res = Result{false, "SO in DBCS field or duplicate SO"}
				cell.EC = ebcNull
				cell.DB = buffer.DBNone
			} else {
				so = true
				cell.DB = buffer.DBNone
			}
			pendingSB = false
			killPendingLeft()
			b.Set(addr, cell)
			addr = b.IncBA(addr)
			continue
		case ebcSI:
			if !so || dbcsField {
				cb.Trace("dbcs: rejecting SI at %d (so=%v dbcsField=%v)", addr, so, dbcsField)
				res = Result{false, "SI without matching SO or SI in DBCS field"}
				cell.EC = ebcNull
			} else {
				so = false
				pendingSB = true
			}
			cell.DB = buffer.DBNone
			killPendingLeft()
			b.Set(addr, cell)
			addr = b.IncBA(addr)
			continue
		}

		if pendingSB {
			if cell.DB != buffer.DBSB {
				cell.DB = buffer.DBSB
				b.Set(addr, cell)
			}
			pendingSB = false
			addr = b.IncBA(addr)
			continue
		}

		inDBCSRun := dbcsField || so
		if inDBCSRun {
			// Non-base charset inside an SO subfield is forced to base.
			if so && !dbcsField && cell.CS&buffer.CSDBCS == 0 && cell.CS != 0 {
				cell.CS = 0
				b.Set(addr, cell)
			}
			if dbaddr < 0 {
				dbaddr = addr
				cell.DB = buffer.DBLeft
				b.Set(addr, cell)
			} else {
				cell.DB = buffer.DBRight
				b.Set(addr, cell)
				dbaddr = -1
			}
		} else if cell.DB != buffer.DBNone {
			cell.DB = buffer.DBNone
			b.Set(addr, cell)
		}

		addr = b.IncBA(addr)
	}

	// A LEFT cell not followed by a RIGHT becomes DEAD (silently).
	killPendingLeft()

	return res
}

func isDBCSField(b *buffer.Buffer, baddr int) bool {
	faAddr := field.FindFieldAttribute(b, baddr)
	if faAddr < 0 {
		return b.DefaultAttr.CS&buffer.CSDBCS != 0
	}
	return b.At(faAddr).CS&buffer.CSDBCS != 0
}
