package nvt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go3270/coreterm/buffer"
	"github.com/go3270/coreterm/nvt"
)

func newProc(t *testing.T) (*nvt.Processor, *buffer.Buffer) {
	t.Helper()
	b := buffer.New(24, 80, 24, 80, nil)
	return nvt.New(b, nil), b
}

func TestPrintableAdvancesCursor(t *testing.T) {
	p, b := newProc(t)
	p.Process([]byte("AB"))
	assert.Equal(t, 'A', b.At(0).UCS4)
	assert.Equal(t, 'B', b.At(1).UCS4)
	assert.Equal(t, 2, b.CursorAddr)
}

func TestCRLF(t *testing.T) {
	p, b := newProc(t)
	p.Process([]byte("hi\r\n"))
	row, col := 1, 0
	assert.Equal(t, row*b.Cols()+col, b.CursorAddr)
}

func TestHeldWrapDoesNotAdvanceUntilNextPrintable(t *testing.T) {
	p, b := newProc(t)
	line := make([]byte, b.Cols())
	for i := range line {
		line[i] = 'X'
	}
	p.Process(line)
	assert.Equal(t, b.Cols()-1, b.CursorAddr)
	assert.NotEqual(t, byte(0), b.At(b.Cols()-1).GR&buffer.GRWrap)

	p.Process([]byte("Y"))
	assert.Equal(t, byte('Y'), byte(b.At(b.Cols()).UCS4))
}

func TestCUPMovesCursor(t *testing.T) {
	p, b := newProc(t)
	p.Process([]byte("\x1b[5;10H"))
	assert.Equal(t, 4*b.Cols()+9, b.CursorAddr)
}

func TestSGRSetsDefaultRendition(t *testing.T) {
	p, b := newProc(t)
	p.Process([]byte("\x1b[1;31mA"))
	cell := b.At(0)
	assert.NotEqual(t, byte(0), cell.GR&buffer.GRIntensify)
	assert.Equal(t, byte(0xF1), cell.FG)
}

func TestDECSTBMSetsScrollRegion(t *testing.T) {
	p, b := newProc(t)
	p.Process([]byte("Z\x1b[5;10r"))
	// Scroll region takes effect on the next newline; verified via
	// scrolling behavior rather than exposing internal state: a newline
	// on row 10 scrolls only rows 5-10, leaving row 1 alone.
	p.Process([]byte("\x1b[10;1HA\n"))
	assert.Equal(t, 'Z', b.At(0).UCS4)
	assert.Equal(t, 'A', b.At(8*b.Cols()).UCS4)
	assert.Equal(t, rune(0), b.At(9*b.Cols()).UCS4)
}

func TestUTF8MultibyteAssembly(t *testing.T) {
	p, b := newProc(t)
	// U+00E9 'é' = 0xC3 0xA9 in UTF-8.
	p.Process([]byte{0xC3, 0xA9})
	assert.Equal(t, rune(0x00E9), b.At(0).UCS4)
}

func TestInvalidUTF8ContinuationEmitsSubstitute(t *testing.T) {
	p, b := newProc(t)
	p.Process([]byte{0xC3, 0x41}) // lead byte then non-continuation 'A'
	assert.Equal(t, rune('?'), b.At(0).UCS4)
	assert.Equal(t, rune('A'), b.At(1).UCS4)
}

func TestSaveRestoreCursor(t *testing.T) {
	p, b := newProc(t)
	p.Process([]byte("\x1b[3;3H\x1b7"))
	saved := b.CursorAddr
	p.Process([]byte("\x1b[1;1H"))
	require.NotEqual(t, saved, b.CursorAddr)
	p.Process([]byte("\x1b8"))
	assert.Equal(t, saved, b.CursorAddr)
}

func TestOSCSurfacesWindowTitle(t *testing.T) {
	p, b := newProc(t)
	_ = b
	var gotCode int
	var gotText string
	cb := &captureCallbacks{onXterm: func(code int, text string) { gotCode, gotText = code, text }}
	p2 := nvt.New(buffer.New(24, 80, 24, 80, nil), cb)
	p2.Process([]byte("\x1b]2;my title\x07"))
	assert.Equal(t, 2, gotCode)
	assert.Equal(t, "my title", gotText)
	_ = p
}

type captureCallbacks struct {
	buffer.NopCallbacks
	onXterm func(code int, text string)
}

func (c *captureCallbacks) XtermText(code int, text string) { c.onXterm(code, text) }

func TestLineDrawingCharset(t *testing.T) {
	p, b := newProc(t)
	p.Process([]byte("\x1b(0q")) // designate G0 as line-draw, then 'q' = horizontal line
	assert.Equal(t, byte(buffer.CSLineDraw), b.At(0).CS)
}
