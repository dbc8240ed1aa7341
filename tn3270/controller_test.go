package tn3270_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go3270/coreterm/buffer"
	"github.com/go3270/coreterm/ctlr"
	"github.com/go3270/coreterm/internal/config"
	"github.com/go3270/coreterm/tn3270"
)

func newController(t *testing.T) *tn3270.Controller {
	t.Helper()
	knobs := config.Default()
	knobs.DBCS = true
	return tn3270.New("test-session", 24, 80, 32, 80, knobs, nil)
}

func TestHandleHostWriteStartsField(t *testing.T) {
	c := newController(t)
	data := []byte{ctlr.CmdEW, 0x00, ctlr.OrderSF, buffer.FAPrintable | buffer.FAProtect}
	status := c.HandleHostWrite(data, false)
	require.Equal(t, ctlr.StatusOK, status)
	assert.True(t, c.Buf.At(0).IsFA())
}

func TestHandleHostWriteRunsDBCSPostProcessor(t *testing.T) {
	c := newController(t)
	// SF (unprotected, non-DBCS field) then an SO with no closing SI:
	// the decoder accepts the write and the post-processor tags the
	// cells after the SO as a DBCS subfield.
	fa := buffer.FAPrintable
	data := []byte{ctlr.CmdEW, 0x00, ctlr.OrderSF, fa, 0x0e, 0x41, 0x41}
	status := c.HandleHostWrite(data, false)
	require.Equal(t, ctlr.StatusOK, status)
	assert.Equal(t, buffer.DBLeft, c.Buf.At(2).DB)
	assert.Equal(t, buffer.DBRight, c.Buf.At(3).DB)
}

func TestKeyAIDLocksKeyboard(t *testing.T) {
	c := newController(t)
	c.OIA.Unlock()
	require.False(t, c.OIA.Locked())
	out := c.KeyAID(ctlr.AIDEnter)
	assert.True(t, c.OIA.Locked())
	assert.Equal(t, ctlr.AIDEnter, out[0])
}

func TestEnterModeResetsNVT(t *testing.T) {
	c := newController(t)
	c.HandleNVTData([]byte("\x1b[5;5H"))
	require.Equal(t, 4*80+4, c.Buf.CursorAddr)
	c.EnterMode(tn3270.ModeNVT)
	assert.Equal(t, 0, c.Buf.CursorAddr, "NVT reset homes the cursor")
	c.HandleNVTData([]byte("\x1b[5;5H"))
	c.EnterMode(tn3270.Mode3270) // switching back resets the NVT again
	assert.Equal(t, tn3270.Mode3270, c.Mode)
	assert.Equal(t, 0, c.Buf.CursorAddr)
}

func TestDisconnectResetsBuffer(t *testing.T) {
	c := newController(t)
	c.Buf.AddChar(0, 0xC1, 0)
	c.Disconnect()
	assert.Equal(t, byte(0), c.Buf.At(0).EC)
}
