package config_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go3270/coreterm/internal/config"
)

func TestDefaultKnobs(t *testing.T) {
	k := config.Default()
	assert.True(t, k.ExtendedDataStream)
	assert.True(t, k.ColorDisplay)
	assert.False(t, k.DBCS)
}

func TestParseKeyValueAndBareDirectives(t *testing.T) {
	src := strings.NewReader(`
# a resource file
dbcs = true
visible_control true
reply_mode = extended
`)
	k, err := config.Parse(src, config.Default())
	require.NoError(t, err)
	assert.True(t, k.DBCS)
	assert.True(t, k.VisibleControl)
	assert.Equal(t, 1, k.ReplyMode)
	// base knobs not mentioned in the file survive unchanged
	assert.True(t, k.ExtendedDataStream)
}

func TestParseBareKeyDefaultsTrue(t *testing.T) {
	src := strings.NewReader("modified_sel\n")
	k, err := config.Parse(src, config.Knobs{})
	require.NoError(t, err)
	assert.True(t, k.ModifiedSel)
}

func TestParseUnknownKeyErrors(t *testing.T) {
	src := strings.NewReader("bogus_knob = true\n")
	_, err := config.Parse(src, config.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus_knob")
}

func TestParseBadBoolErrors(t *testing.T) {
	src := strings.NewReader("dbcs = maybe\n")
	_, err := config.Parse(src, config.Default())
	require.Error(t, err)
}

func TestParseBadReplyModeErrors(t *testing.T) {
	src := strings.NewReader("reply_mode = bogus\n")
	_, err := config.Parse(src, config.Default())
	require.Error(t, err)
}

func TestParseFileMissingReturnsError(t *testing.T) {
	_, err := config.ParseFile("/nonexistent/path/to/resource/file")
	require.Error(t, err)
}
