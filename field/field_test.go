package field_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go3270/coreterm/buffer"
	"github.com/go3270/coreterm/field"
)

func newScreen(t *testing.T) *buffer.Buffer {
	t.Helper()
	return buffer.New(24, 80, 32, 80, nil)
}

func TestFindFieldAttributeUnformatted(t *testing.T) {
	b := newScreen(t)
	assert.Equal(t, -1, field.FindFieldAttribute(b, 10))
	assert.Equal(t, b.DefaultAttr.FA, field.GetFieldAttribute(b, 10))
}

func TestFindFieldAttributeIdempotentAcrossField(t *testing.T) {
	b := newScreen(t)
	b.AddFA(0, buffer.FAPrintable|buffer.FAModify, 0)
	b.AddChar(1, 0xc1, 0)
	b.AddChar(2, 0xc2, 0)
	b.AddChar(3, 0xc3, 0)
	b.AddFA(4, buffer.FAPrintable|buffer.FAProtect, 0)

	for _, addr := range []int{1, 2, 3} {
		got := field.FindFieldAttribute(b, addr)
		assert.Equal(t, 0, got)
	}
	require.Equal(t, 1, field.NextUnprotected(b, 4))
}

func TestMDTSetClear(t *testing.T) {
	b := newScreen(t)
	b.AddFA(0, buffer.FAPrintable, 0)
	field.MDTSet(b, 2, false)
	assert.True(t, b.At(0).Modified())
	field.MDTClear(b, 2, false)
	assert.False(t, b.At(0).Modified())
}

func TestResetAllMDT(t *testing.T) {
	b := newScreen(t)
	b.AddFA(0, buffer.FAPrintable|buffer.FAModify, 0)
	b.AddFA(4, buffer.FAPrintable|buffer.FAModify, 0)
	field.ResetAllMDT(b)
	assert.False(t, b.At(0).Modified())
	assert.False(t, b.At(4).Modified())
}

func TestLookleftStateSubfield(t *testing.T) {
	b := newScreen(t)
	b.AddFA(0, buffer.FAPrintable, 0)
	b.AddChar(1, 0x0e, 0) // SO
	b.AddChar(2, 0x41, 0) // DBCS left half
	b.AddChar(3, 0x41, 0) // DBCS right half
	b.AddChar(4, 0x0f, 0) // SI

	state, reason := field.LookleftState(b, 2)
	assert.Equal(t, buffer.DBLeft, state)
	assert.Equal(t, field.ReasonSubfield, reason)

	state, reason = field.LookleftState(b, 3)
	assert.Equal(t, buffer.DBRight, state)
	assert.Equal(t, field.ReasonSubfield, reason)
}
