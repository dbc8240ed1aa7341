package dbcs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go3270/coreterm/buffer"
	"github.com/go3270/coreterm/dbcs"
)

func newBuf(t *testing.T) *buffer.Buffer {
	t.Helper()
	return buffer.New(24, 80, 24, 80, nil)
}

func TestProcessTagsLeftRightPair(t *testing.T) {
	b := newBuf(t)
	b.AddChar(0, 0x0e, 0) // SO
	b.AddChar(1, 0x41, 0)
	b.AddChar(2, 0x41, 0)
	b.AddChar(3, 0x0f, 0) // SI

	res := dbcs.Process(b, nil)
	require.True(t, res.OK)
	assert.Equal(t, buffer.DBLeft, b.At(1).DB)
	assert.Equal(t, buffer.DBRight, b.At(2).DB)
}

func TestProcessRejectsOrphanSI(t *testing.T) {
	b := newBuf(t)
	b.AddChar(0, 0x0f, 0) // SI with no matching SO

	res := dbcs.Process(b, nil)
	assert.False(t, res.OK)
	assert.Equal(t, byte(0), b.At(0).EC)
}

func TestProcessRejectsDuplicateSO(t *testing.T) {
	b := newBuf(t)
	b.AddChar(0, 0x0e, 0)
	b.AddChar(1, 0x0e, 0) // second SO before any SI

	res := dbcs.Process(b, nil)
	assert.False(t, res.OK)
}

func TestProcessMarksUnterminatedLeftAsDead(t *testing.T) {
	// A 2-cell buffer so the SO at 0 leaves exactly one trailing cell in
	// the DBCS run with no RIGHT partner before the scan ends.
	b := buffer.New(1, 2, 1, 2, nil)
	b.AddChar(0, 0x0e, 0) // SO
	b.AddChar(1, 0x41, 0)

	dbcs.Process(b, nil)
	assert.Equal(t, buffer.DBDead, b.At(1).DB)
	assert.Equal(t, byte(0), b.At(1).EC)
}

func TestProcessHandlesNilCallbacks(t *testing.T) {
	b := newBuf(t)
	assert.NotPanics(t, func() {
		dbcs.Process(b, nil)
	})
}
