package traceserver_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go3270/coreterm/internal/traceserver"
)

func TestHandleSnapshotFound(t *testing.T) {
	s := traceserver.New(func(id string) []byte {
		if id == "abc" {
			return []byte{0x01, 0x02}
		}
		return nil
	})
	req := httptest.NewRequest(http.MethodGet, "/sessions/abc/snapshot", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte{0x01, 0x02}, rec.Body.Bytes())
}

func TestHandleSnapshotNotFound(t *testing.T) {
	s := traceserver.New(func(id string) []byte { return nil })
	req := httptest.NewRequest(http.MethodGet, "/sessions/missing/snapshot", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScreenChangedPublishesWithoutSubscribers(t *testing.T) {
	s := traceserver.New(func(id string) []byte { return nil })
	assert.NotPanics(t, func() {
		s.ScreenChanged("no-subs")
		s.ScrollSave("no-subs", []string{"row"}, 80)
	})
}
