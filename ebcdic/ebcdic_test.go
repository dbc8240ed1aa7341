package ebcdic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go3270/coreterm/ebcdic"
)

func TestDefaultIsCP037(t *testing.T) {
	cp := ebcdic.Default()
	assert.Equal(t, "037", cp.ID())
}

func TestRoundTripASCIIRange(t *testing.T) {
	cp := ebcdic.Default()
	s := "HELLO, WORLD! 123"
	enc := cp.Encode(s)
	require.Len(t, enc, len(s))
	assert.Equal(t, s, cp.Decode(enc))
}

func TestKnownBytes(t *testing.T) {
	cp := ebcdic.Default()
	assert.Equal(t, rune('A'), cp.DecodeByte(0xC1))
	assert.Equal(t, rune('0'), cp.DecodeByte(0xF0))
	assert.Equal(t, rune(' '), cp.DecodeByte(0x40))

	b, ok := cp.EncodeRune('A')
	assert.True(t, ok)
	assert.Equal(t, byte(0xC1), b)
}

func TestEncodeUnmappableSubstitutes(t *testing.T) {
	cp := ebcdic.Default()
	b, ok := cp.EncodeRune(0x4E00) // CJK ideograph, not in CP037
	assert.False(t, ok)
	assert.Equal(t, byte(0x6f), b)
}
