// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

package tn3270

import (
	"github.com/go3270/coreterm/buffer"
	"github.com/go3270/coreterm/internal/logging"
)

// Sink is the external effect a session's callbacks reach beyond
// logging: the trace/scrollback viewer (spec §6
// screen_changed/scroll_save). Bell and OIA changes go to the
// CellCallbacks hook functions instead.
type Sink interface {
	ScreenChanged(sessionID string)
	ScrollSave(sessionID string, rows []string, cols int)
}

// CellCallbacks is the concrete buffer.Callbacks implementation a
// session's Controller is built with: it fans RingBell/KybdInhibit/
// VStatus/XtermText out to whatever terminal-driving code embeds it,
// routes PopupError/Trace through the logging.Logger, and forwards
// ScreenChanged/ScrollSave to the trace/scrollback Sink.
type CellCallbacks struct {
	buffer.NopCallbacks

	SessionID  string
	Log        *logging.Logger
	ScreenSink Sink

	OnRingBell       func()
	OnKybdInhibit    func(bool)
	OnKybdlockClr    func(mask uint32, reason string)
	OnVStatus        func(name string, val bool)
	OnTaskHostOutput func()
	OnXtermText      func(code int, text string)
}

func (c *CellCallbacks) RingBell() {
	if c.OnRingBell != nil {
		c.OnRingBell()
	}
}

func (c *CellCallbacks) ScreenChanged() {
	if c.ScreenSink != nil {
		c.ScreenSink.ScreenChanged(c.SessionID)
	}
}

func (c *CellCallbacks) ScrollSave(lines []buffer.Cell, cols int) {
	if c.ScreenSink == nil {
		return
	}
	rows := make([]string, 1)
	row := make([]rune, cols)
	for i, cell := range lines {
		if i >= cols {
			break
		}
		if cell.UCS4 != 0 {
			row[i] = cell.UCS4
		} else {
			row[i] = ' '
		}
	}
	rows[0] = string(row)
	c.ScreenSink.ScrollSave(c.SessionID, rows, cols)
}

func (c *CellCallbacks) KybdInhibit(inhibit bool) {
	if c.OnKybdInhibit != nil {
		c.OnKybdInhibit(inhibit)
	}
}

func (c *CellCallbacks) KybdlockClr(mask uint32, reason string) {
	if c.OnKybdlockClr != nil {
		c.OnKybdlockClr(mask, reason)
	}
}

func (c *CellCallbacks) VStatus(name string, val bool) {
	if c.OnVStatus != nil {
		c.OnVStatus(name, val)
	}
}

func (c *CellCallbacks) PopupError(format string, args ...any) {
	if c.Log != nil {
		c.Log.PopupError(format, args...)
	}
}

func (c *CellCallbacks) TaskHostOutput() {
	if c.OnTaskHostOutput != nil {
		c.OnTaskHostOutput()
	}
}

func (c *CellCallbacks) XtermText(code int, text string) {
	if c.OnXtermText != nil {
		c.OnXtermText(code, text)
	}
}

func (c *CellCallbacks) Trace(format string, args ...any) {
	if c.Log != nil {
		c.Log.Trace(format, args...)
	}
}
