// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

package tn3270

import (
	"sync/atomic"

	"github.com/go3270/coreterm/buffer"
)

// OIA tracks the operator-information-area state ctlr.Decoder reads
// and mutates through its ctlr.OIA seam: the current AID, the
// keyboard lock, and whether a host task is holding the terminal in
// twait (spec §6 kybd_inhibit/kybdlock_clr/vstatus_*).
type OIA struct {
	aid atomic.Uint32 // holds one byte

	locked  atomic.Bool
	twait   atomic.Bool
	syswait atomic.Bool

	cb buffer.Callbacks
}

// NewOIA creates an OIA in the initial locked, no-AID state a freshly
// connected session starts in.
func NewOIA(cb buffer.Callbacks) *OIA {
	o := &OIA{cb: cb}
	o.locked.Store(true)
	return o
}

func (o *OIA) AID() byte { return byte(o.aid.Load()) }

func (o *OIA) SetAID(aid byte) { o.aid.Store(uint32(aid)) }

func (o *OIA) Unlock() {
	if o.locked.CompareAndSwap(true, false) {
		o.cb.KybdInhibit(false)
		o.cb.KybdlockClr(0, "unlocked")
	}
}

// Lock re-engages the keyboard lock, used when a new command is sent
// to the host (AID key press) pending its reply.
func (o *OIA) Lock() {
	if o.locked.CompareAndSwap(false, true) {
		o.cb.KybdInhibit(true)
	}
}

func (o *OIA) Locked() bool { return o.locked.Load() }

func (o *OIA) IsTWait() bool { return o.twait.Load() }

func (o *OIA) SetTWait(v bool) { o.twait.Store(v) }

// SetSyswait marks the OIA as waiting on a blocked host task;
// ClearSyswait removes the mark. The Controller does not call
// ClearSyswait itself.
func (o *OIA) SetSyswait() {
	o.syswait.Store(true)
	o.cb.VStatus("syswait", true)
}

func (o *OIA) ClearSyswait() {
	if o.syswait.CompareAndSwap(true, false) {
		o.cb.VStatus("syswait", false)
	}
}
