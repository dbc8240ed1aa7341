package tn3270_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go3270/coreterm/buffer"
	"github.com/go3270/coreterm/tn3270"
)

func TestOIAStartsLocked(t *testing.T) {
	o := tn3270.NewOIA(buffer.NopCallbacks{})
	assert.True(t, o.Locked())
}

func TestOIAUnlockLockRoundTrip(t *testing.T) {
	o := tn3270.NewOIA(buffer.NopCallbacks{})
	o.Unlock()
	assert.False(t, o.Locked())
	o.Lock()
	assert.True(t, o.Locked())
}

func TestOIASetAndGetAID(t *testing.T) {
	o := tn3270.NewOIA(buffer.NopCallbacks{})
	o.SetAID(0x7d)
	assert.Equal(t, byte(0x7d), o.AID())
}

type vstatusRecorder struct {
	buffer.NopCallbacks
	calls []bool
}

func (r *vstatusRecorder) VStatus(name string, val bool) { r.calls = append(r.calls, val) }

func TestOIASyswaitClearedOnlyIfSet(t *testing.T) {
	rec := &vstatusRecorder{}
	o := tn3270.NewOIA(rec)
	o.ClearSyswait() // no-op, never set
	o.SetSyswait()
	o.ClearSyswait()
	o.ClearSyswait() // second clear is a no-op CAS miss
	assert.Equal(t, []bool{true, false}, rec.calls)
}

func TestOIATWait(t *testing.T) {
	o := tn3270.NewOIA(buffer.NopCallbacks{})
	assert.False(t, o.IsTWait())
	o.SetTWait(true)
	assert.True(t, o.IsTWait())
}
