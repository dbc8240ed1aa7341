package ctlr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go3270/coreterm/buffer"
	"github.com/go3270/coreterm/ctlr"
)

type fakeOIA struct {
	aid     byte
	locked  bool
	twait   bool
	syswait bool
}

func (f *fakeOIA) AID() byte        { return f.aid }
func (f *fakeOIA) SetAID(v byte)    { f.aid = v }
func (f *fakeOIA) Unlock()          { f.locked = false }
func (f *fakeOIA) IsTWait() bool    { return f.twait }
func (f *fakeOIA) SetSyswait()      { f.syswait = true }

func newDecoder(t *testing.T) (*ctlr.Decoder, *buffer.Buffer, *fakeOIA) {
	t.Helper()
	b := buffer.New(24, 80, 32, 80, nil)
	oia := &fakeOIA{locked: true, aid: ctlr.AIDEnter}
	d := &ctlr.Decoder{Buf: b, CB: buffer.NopCallbacks{}, OIA: oia}
	return d, b, oia
}

func TestWriteSFStartsField(t *testing.T) {
	d, b, _ := newDecoder(t)
	buf := []byte{ctlr.CmdEW, 0x00, ctlr.OrderSF, buffer.FAPrintable | buffer.FAProtect}
	status := d.ProcessDS(buf, false)
	require.Equal(t, ctlr.StatusOK, status)
	assert.True(t, b.At(0).IsFA())
	assert.True(t, b.Formatted)
}

func TestWriteSBAMovesBufferAddr(t *testing.T) {
	d, b, _ := newDecoder(t)
	// SBA to address 5 (12-bit form: top 2 bits 01), then write 'A' (0xC1).
	buf := []byte{ctlr.CmdEW, 0x00, ctlr.OrderSBA, 0x40, 0x05, 0xC1}
	status := d.ProcessDS(buf, false)
	require.Equal(t, ctlr.StatusOK, status)
	assert.Equal(t, byte(0xC1), b.At(5).EC)
}

func TestWriteICMovesCursorAfterWrite(t *testing.T) {
	d, b, _ := newDecoder(t)
	buf := []byte{ctlr.CmdEW, 0x00, ctlr.OrderSBA, 0x40, 0x0A, ctlr.OrderIC}
	status := d.ProcessDS(buf, false)
	require.Equal(t, ctlr.StatusOK, status)
	assert.Equal(t, 10, b.CursorAddr)
}

func TestWCCKeyboardRestoreUnlocksAndClearsAID(t *testing.T) {
	d, b, oia := newDecoder(t)
	_ = b
	buf := []byte{ctlr.CmdEW, ctlr.WCCKeyboardRestore}
	status := d.ProcessDS(buf, false)
	require.Equal(t, ctlr.StatusOK, status)
	assert.False(t, oia.locked)
	assert.Equal(t, byte(0), oia.aid)
}

func TestSBAOutOfRangeAborts(t *testing.T) {
	d, _, _ := newDecoder(t)
	// 14-bit form (top bits 00) encoding an address >= 24*80=1920.
	buf := []byte{ctlr.CmdEW, 0x00, ctlr.OrderSBA, 0x3F, 0xFF}
	status := d.ProcessDS(buf, false)
	assert.Equal(t, ctlr.StatusBadAddr, status)
}

func TestRASplatsCharacterAcrossRange(t *testing.T) {
	d, b, _ := newDecoder(t)
	// RA from buffer_addr(0) to address 3, filling with 'X' (0xE7).
	buf := []byte{ctlr.CmdEW, 0x00, ctlr.OrderRA, 0x40, 0x03, 0xE7}
	status := d.ProcessDS(buf, false)
	require.Equal(t, ctlr.StatusOK, status)
	assert.Equal(t, byte(0xE7), b.At(0).EC)
	assert.Equal(t, byte(0xE7), b.At(1).EC)
	assert.Equal(t, byte(0xE7), b.At(2).EC)
	assert.Equal(t, byte(0), b.At(3).EC)
}

func TestEUAErasesOnlyUnprotected(t *testing.T) {
	d, b, _ := newDecoder(t)
	buf := []byte{
		ctlr.CmdEW, 0x00,
		ctlr.OrderSF, buffer.FAPrintable, // unprotected field at 0
		0xC1, // 'A' at 1
		ctlr.OrderSBA, 0x40, 0x05,
		ctlr.OrderSF, buffer.FAPrintable | buffer.FAProtect, // protected field at 5
		0xC2, // 'B' at 6
	}
	status := d.ProcessDS(buf, false)
	require.Equal(t, ctlr.StatusOK, status)

	euaBuf := []byte{ctlr.CmdW, 0x00, ctlr.OrderEUA, 0x40, 0x07}
	d.Buf.BufferAddr = 0
	status = d.ProcessDS(euaBuf, false)
	require.Equal(t, ctlr.StatusOK, status)
	assert.Equal(t, byte(0), b.At(1).EC, "unprotected field content erased")
	assert.Equal(t, byte(0xC2), b.At(6).EC, "protected field content untouched")
}

func TestBadCommandByte(t *testing.T) {
	d, _, _ := newDecoder(t)
	status := d.ProcessDS([]byte{0xAB}, false)
	assert.Equal(t, ctlr.StatusBadCmd, status)
}

func TestReadBufferEmitsSFForEachField(t *testing.T) {
	d, b, _ := newDecoder(t)
	buf := []byte{ctlr.CmdEW, 0x00, ctlr.OrderSF, buffer.FAPrintable, 0xC1}
	status := d.ProcessDS(buf, false)
	require.Equal(t, ctlr.StatusOK, status)

	enc := &ctlr.Encoder{Buf: b}
	out := enc.ReadBuffer(ctlr.AIDEnter)
	require.True(t, len(out) > 3)
	assert.Equal(t, ctlr.AIDEnter, out[0])
	assert.Contains(t, out, ctlr.OrderSF)
}

func TestReadModifiedShortAIDEmitsOnlyAID(t *testing.T) {
	_, b, _ := newDecoder(t)
	enc := &ctlr.Encoder{Buf: b}
	out := enc.ReadModified(ctlr.AIDClear, false)
	assert.Equal(t, []byte{ctlr.AIDClear}, out)
}

func TestReadModifiedEmitsOnlyModifiedFields(t *testing.T) {
	d, b, _ := newDecoder(t)
	buf := []byte{
		ctlr.CmdEW, 0x00,
		ctlr.OrderSF, buffer.FAPrintable, // unmodified field
		0xC1,
		ctlr.OrderSBA, 0x40, 0x05,
		ctlr.OrderSF, buffer.FAPrintable | buffer.FAModify, // modified field
		0xC2,
	}
	status := d.ProcessDS(buf, false)
	require.Equal(t, ctlr.StatusOK, status)

	enc := &ctlr.Encoder{Buf: b}
	out := enc.ReadModified(ctlr.AIDEnter, false)
	assert.Contains(t, out, byte(0xC2))
	assert.NotContains(t, out, byte(0xC1))
}
