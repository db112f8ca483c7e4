package server_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"codeberg.org/isvind/gpufanctl/internal/errors"
	"codeberg.org/isvind/gpufanctl/internal/server"
	"codeberg.org/isvind/gpufanctl/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReader struct {
	snapshot *state.Snapshot
	err      error
}

func (r *stubReader) ReadSnapshot() (*state.Snapshot, error) {
	return r.snapshot, r.err
}

func request(t *testing.T, reader server.SnapshotReader, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	srv := server.New(reader, "/tmp/unused.sock")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	srv.Handler().ServeHTTP(rec, req)

	return rec
}

func TestGpuStateReturnsSnapshot(t *testing.T) {
	reader := &stubReader{snapshot: &state.Snapshot{
		Persistent: state.PersistentParams{DeviceName: "Test GPU", NumFans: 2},
		Runtime:    state.RuntimeParams{DeviceTemperature: 61},
		FanCurve:   []state.CurvePoint{{Temperature: 0, Duty: 20}},
	}}

	rec := request(t, reader, http.MethodGet, "/gpustate")
	require.Equal(t, http.StatusOK, rec.Code)

	var decoded state.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, "Test GPU", decoded.Persistent.DeviceName)
	assert.Equal(t, 61, decoded.Runtime.DeviceTemperature)
}

func TestGpuStateFailureReturnsErrorChain(t *testing.T) {
	errFactory := errors.New()
	reader := &stubReader{
		err: errFactory.Wrap(errors.ErrSnapshotRead, fmt.Errorf("NVML gone")),
	}

	rec := request(t, reader, http.MethodGet, "/gpustate")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "[0]: Failed to read device snapshot")
	assert.Contains(t, body, "[1]: NVML gone")

	numbered := 0
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "[") {
			numbered++
		}
	}
	assert.GreaterOrEqual(t, numbered, 1)
}

func TestUnknownPathReturnsEmptyNotFound(t *testing.T) {
	reader := &stubReader{snapshot: &state.Snapshot{}}

	rec := request(t, reader, http.MethodGet, "/fanstate")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestWrongMethodReturnsEmptyNotFound(t *testing.T) {
	reader := &stubReader{snapshot: &state.Snapshot{}}

	rec := request(t, reader, http.MethodPost, "/gpustate")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestServerKeepsServingAfterFailure(t *testing.T) {
	reader := &stubReader{err: fmt.Errorf("flaky")}
	srv := server.New(reader, "/tmp/unused.sock")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gpustate", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	reader.err = nil
	reader.snapshot = &state.Snapshot{}
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gpustate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
