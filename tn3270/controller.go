// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

// Package tn3270 wires the buffer, field, ctlr, nvt, and dbcs packages
// into the single-threaded, cooperative controller spec §5 describes:
// one logical executor draining host bytes, running the 3270 order
// decoder or the NVT processor against a shared buffer, and handing
// outbound bytes back to the transport via the inbound encoder.
package tn3270

import (
	"github.com/go3270/coreterm/buffer"
	"github.com/go3270/coreterm/ctlr"
	"github.com/go3270/coreterm/dbcs"
	"github.com/go3270/coreterm/internal/config"
	"github.com/go3270/coreterm/nvt"
)

// Mode is which of the two producers (spec §3 "one buffer, two
// producers") currently owns incoming host bytes.
type Mode int

const (
	Mode3270 Mode = iota
	ModeNVT
)

// Controller is one session's worth of core state: the shared buffer,
// the 3270 decoder/encoder pair, the NVT processor, and the knobs that
// gate their behavior. It is not safe for concurrent use from more
// than one goroutine — spec §5 requires a single logical executor per
// session.
type Controller struct {
	Buf     *buffer.Buffer
	OIA     *OIA
	Decoder *ctlr.Decoder
	Encoder *ctlr.Encoder
	NVT     *nvt.Processor

	CB    buffer.Callbacks
	Knobs config.Knobs

	Mode Mode

	// SessionID correlates this controller's log/trace output (spec
	// SPEC_FULL.md "Session identity": a google/uuid string assigned
	// by the caller at Accept time).
	SessionID string
}

// New builds a Controller for one freshly accepted connection. rows/
// cols is the default (EW) screen size; altRows/altCols is the
// alternate (EWA) size a host may switch to.
func New(sessionID string, rows, cols, altRows, altCols int, knobs config.Knobs, cb buffer.Callbacks) *Controller {
	if cb == nil {
		cb = buffer.NopCallbacks{}
	}
	buf := buffer.New(rows, cols, altRows, altCols, cb)
	buf.VisibleControl = knobs.VisibleControl

	oia := NewOIA(cb)

	dec := &ctlr.Decoder{
		Buf:           buf,
		CB:            cb,
		OIA:           oia,
		ColorDisplay:  knobs.ColorDisplay,
		DBCSSupported: knobs.DBCS,
		ReplyMode:     knobs.ReplyMode,
	}

	enc := &ctlr.Encoder{
		Buf:           buf,
		ExtendedAttrs: map[byte]bool{},
	}
	enc.SetReplyModeFunc(func() int { return dec.ReplyMode })
	enc.SetColorEnabledFunc(func() bool { return knobs.ColorDisplay })

	c := &Controller{
		Buf:       buf,
		OIA:       oia,
		Decoder:   dec,
		Encoder:   enc,
		NVT:       nvt.New(buf, cb),
		CB:        cb,
		Knobs:     knobs,
		SessionID: sessionID,
	}
	return c
}

// HandleHostWrite feeds one complete 3270 write data stream (already
// framed by the transport at TELNET EOR boundaries, per spec §7) to
// the order decoder, then runs the DBCS post-processor over the
// result (spec §4.6: "after every 3270 write"). kybdRestore lets a
// caller force an unlock independent of the WCC bit, mirroring the
// original process_ds(buf, buflen, kybd_restore) signature.
func (c *Controller) HandleHostWrite(data []byte, kybdRestore bool) ctlr.Status {
	status := c.Decoder.ProcessDS(data, kybdRestore)
	if !c.Knobs.DBCS {
		return status
	}
	if res := dbcs.Process(c.Buf, c.CB); !res.OK {
		c.CB.Trace("tn3270: dbcs violation on session %s: %s", c.SessionID, res.Violation)
	}
	return status
}

// HandleNVTData feeds one chunk of raw ANSI/VT100 bytes through the
// NVT processor, then runs the DBCS post-processor (spec §4.6: "after
// every NVT batch").
func (c *Controller) HandleNVTData(data []byte) {
	c.NVT.Process(data)
	if !c.Knobs.DBCS {
		return
	}
	if res := dbcs.Process(c.Buf, c.CB); !res.OK {
		c.CB.Trace("tn3270: dbcs violation on session %s: %s", c.SessionID, res.Violation)
	}
}

// EnterMode switches which producer owns subsequent host bytes,
// running the single reset spec §5 requires to complete before any
// further bytes are processed.
func (c *Controller) EnterMode(m Mode) {
	if c.Mode == m {
		return
	}
	c.Mode = m
	c.NVT.Reset()
}

// KeyAID is called when the keyboard produces an AID key (Enter, a PF
// key, Clear, ...): it locks the keyboard pending the host's next
// write, per spec §5 "keyboard actions ... must not interleave with
// an ongoing 3270 write; they wait for the decoder to finish a
// command" — the lock is how that wait is expressed to the caller.
func (c *Controller) KeyAID(aid byte) []byte {
	c.OIA.SetAID(aid)
	c.OIA.Lock()
	out := c.Encoder.ReadModified(aid, false)
	c.CB.TaskHostOutput()
	return out
}

// ReadBuffer implements the host RB command: a full unconditional
// buffer dump in the negotiated reply mode (spec §4.4).
func (c *Controller) ReadBuffer() []byte {
	return c.Encoder.ReadBuffer(c.OIA.AID())
}

// Disconnect runs the single connection-state-transition reset spec
// §5 requires before any further bytes may be processed.
func (c *Controller) Disconnect() {
	c.Buf.Erase(false)
	c.NVT.Reset()
	c.OIA.SetAID(0)
	c.OIA.Lock()
	c.Mode = Mode3270
}
