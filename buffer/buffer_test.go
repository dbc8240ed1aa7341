package buffer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go3270/coreterm/buffer"
)

func TestIncDecBAWraparound(t *testing.T) {
	b := buffer.New(24, 80, 32, 80, nil)
	require.Equal(t, 24*80, b.Size())
	assert.Equal(t, 0, b.IncBA(24*80-1))
	assert.Equal(t, 24*80-1, b.DecBA(0))
	assert.Equal(t, 1, b.IncBA(0))
}

func TestEraseIdempotent(t *testing.T) {
	b := buffer.New(24, 80, 32, 80, nil)
	b.AddChar(5, 0xc1, 0)
	b.Erase(false)
	assert.Equal(t, byte(0), b.At(5).EC)
	assert.Equal(t, 24, b.Rows())
	// Calling again with the same shape is a no-op beyond re-clearing.
	b.Erase(false)
	assert.Equal(t, 24, b.Rows())
}

func TestEraseAlternateDimensions(t *testing.T) {
	b := buffer.New(24, 80, 32, 80, nil)
	b.Erase(true)
	assert.Equal(t, 32, b.Rows())
	assert.True(t, b.IsAltSize())
	b.Erase(false)
	assert.Equal(t, 24, b.Rows())
	assert.False(t, b.IsAltSize())
}

func TestAltBufferSwapsContent(t *testing.T) {
	b := buffer.New(24, 80, 32, 80, nil)
	b.AddChar(0, 0xc1, 0)
	b.AltBuffer(true)
	assert.Equal(t, byte(0), b.At(0).EC)
	b.AddChar(0, 0xc2, 0)
	b.AltBuffer(false)
	assert.Equal(t, byte(0xc1), b.At(0).EC)
}

type scrollRecorder struct {
	buffer.NopCallbacks
	saved [][]buffer.Cell
}

func (s *scrollRecorder) ScrollSave(lines []buffer.Cell, cols int) {
	cp := make([]buffer.Cell, len(lines))
	copy(cp, lines)
	s.saved = append(s.saved, cp)
}

func TestScrollFullScreenFeedsScrollback(t *testing.T) {
	rec := &scrollRecorder{}
	b := buffer.New(3, 2, 3, 2, rec)
	b.AddChar(0, 0xc1, 0) // row0 col0
	b.Scroll(1, 3, 0, 0)
	require.Len(t, rec.saved, 1)
	assert.Equal(t, byte(0xc1), rec.saved[0][0].EC)
	// row 0 now holds what was row 1 (blank); bottom row cleared.
	assert.Equal(t, byte(0), b.At(0).EC)
}

func TestWrappingCopyAcrossEnd(t *testing.T) {
	b := buffer.New(2, 2, 2, 2, nil)
	b.AddChar(0, 0xc1, 0)
	b.AddChar(1, 0xc2, 0)
	b.WrappingCopy(0, 3, 2)
	assert.Equal(t, byte(0xc1), b.At(3).EC)
	assert.Equal(t, byte(0xc2), b.At(0).EC)
}
