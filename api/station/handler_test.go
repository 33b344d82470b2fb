package station

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	corestation "github.com/kilianp07/battsim/core/station"
)

type halfRand struct{}

func (halfRand) Float64() float64 { return 0.5 }

func newMux(t *testing.T, token string) *http.ServeMux {
	t.Helper()
	fc := clocktesting.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	st, err := corestation.New(corestation.DefaultConfig(), corestation.Options{Clock: fc, Rand: halfRand{}})
	require.NoError(t, err)
	t.Cleanup(st.Stop)
	mux := http.NewServeMux()
	NewHandler(st, token).RegisterRoutes(mux)
	return mux
}

func post(mux http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, nil))
	return rr
}

func TestGetStation(t *testing.T) {
	mux := newMux(t, "")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/station", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var snap corestation.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Len(t, snap.Vehicles, 8)
	assert.False(t, snap.AnomalyDetected)
	v, ok := snap.Vehicle("1")
	require.True(t, ok)
	assert.Equal(t, 15.0, v.SoC)
}

func TestSelectTwiceRaisesAlert(t *testing.T) {
	mux := newMux(t, "")

	rr := post(mux, "/api/v1/station/select/3")
	require.Equal(t, http.StatusOK, rr.Code)
	var res SelectResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.False(t, res.Triggered)
	assert.Equal(t, "3", res.Station.Selected)

	rr = post(mux, "/api/v1/station/select/3")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.True(t, res.Triggered)
	assert.True(t, res.Station.AnomalyDetected)
	assert.Equal(t, 1, res.Station.Alerts)
	v, _ := res.Station.Vehicle("3")
	assert.True(t, v.AnomalyDetected)

	rr = post(mux, "/api/v1/station/select/4")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.False(t, res.Station.AnomalyDetected)
}

func TestSelectErrors(t *testing.T) {
	mux := newMux(t, "tok")
	assert.Equal(t, http.StatusUnauthorized, post(mux, "/api/v1/station/select/1").Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/station/select/42", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
