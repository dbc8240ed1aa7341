package logging_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go3270/coreterm/internal/logging"
)

func TestNewNopDoesNotPanic(t *testing.T) {
	l := logging.NewNop()
	require.NotNil(t, l)
	assert.NotPanics(t, func() {
		l.Trace("trace %d", 1)
		l.PopupError("popup %s", "msg")
		l.Protocol("session-1", "write", errors.New("bad command"))
		l.DBCSViolation("session-1", "orphan SI")
		_ = l.Sync()
	})
}

func TestNewBuildsProductionAndDevelopmentLoggers(t *testing.T) {
	for _, debug := range []bool{false, true} {
		l, err := logging.New(debug)
		require.NoError(t, err)
		require.NotNil(t, l)
		assert.NotPanics(t, func() {
			l.Trace("hello")
		})
	}
}

func TestLoggerSatisfiesSink(t *testing.T) {
	var _ logging.Sink = logging.NewNop()
}
