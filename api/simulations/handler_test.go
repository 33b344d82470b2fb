package simulations

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/kilianp07/battsim/core/scenario"
	"github.com/kilianp07/battsim/core/telemetry"
)

type zeroRand struct{}

func (zeroRand) Float64() float64 { return 0 }

func newMux(t *testing.T, token string) (*http.ServeMux, *telemetry.Handle) {
	t.Helper()
	cfg, err := scenario.Preset(scenario.PresetCar)
	require.NoError(t, err)
	fc := clocktesting.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	h, err := telemetry.Start(cfg, telemetry.WithClock(fc), telemetry.WithRand(zeroRand{}))
	require.NoError(t, err)
	t.Cleanup(h.Stop)

	mux := http.NewServeMux()
	NewHandler(map[string]Target{cfg.Name: h}, token).RegisterRoutes(mux)
	return mux, h
}

func do(mux http.Handler, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestListAndGet(t *testing.T) {
	mux, h := newMux(t, "")

	rr := do(mux, http.MethodGet, "/api/v1/simulations", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "car", list[0].Name)
	assert.Equal(t, h.Snapshot().RunID, list[0].RunID)
	assert.Equal(t, telemetry.PhaseNominal, list[0].Phase)

	rr = do(mux, http.MethodGet, "/api/v1/simulations/car", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var snap telemetry.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	soc, ok := snap.Channel("soc")
	require.True(t, ok)
	assert.Len(t, soc.Samples, len(soc.Timestamps))

	rr = do(mux, http.MethodGet, "/api/v1/simulations/ghost", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAnomalyAndAcknowledge(t *testing.T) {
	mux, h := newMux(t, "")

	rr := do(mux, http.MethodPost, "/api/v1/simulations/car/anomaly", "")
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.JSONEq(t, `{"id":"car-overvoltage"}`, rr.Body.String())
	assert.True(t, h.Snapshot().AnomalyActive)
	v, _ := h.Snapshot().Latest("voltage")
	assert.Equal(t, 600.0, v)

	rr = do(mux, http.MethodPost, "/api/v1/simulations/car/acknowledge", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var snap telemetry.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.False(t, snap.AnomalyActive)
	assert.Equal(t, telemetry.PhaseNominal, snap.Phase)

	rr = do(mux, http.MethodPost, "/api/v1/simulations/car/anomaly", `{"id":"custom","overrides":{"soc":{"op":"scale","value":0.5}}}`)
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "custom", h.Snapshot().AnomalyID)
}

func TestAnomalyErrors(t *testing.T) {
	mux, h := newMux(t, "")

	rr := do(mux, http.MethodPost, "/api/v1/simulations/car/anomaly", `{"overrides":{"current":{"value":1}}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, h.Snapshot().AnomalyActive)

	rr = do(mux, http.MethodPost, "/api/v1/simulations/car/anomaly", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(mux, http.MethodPost, "/api/v1/simulations/ghost/anomaly", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	h.Stop()
	rr = do(mux, http.MethodPost, "/api/v1/simulations/car/anomaly", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCommandsRequireToken(t *testing.T) {
	mux, _ := newMux(t, "s3cret")

	rr := do(mux, http.MethodPost, "/api/v1/simulations/car/acknowledge", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(mux, http.MethodPost, "/api/v1/simulations/car/acknowledge", "", "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(mux, http.MethodGet, "/api/v1/simulations/car", "")
	assert.Equal(t, http.StatusOK, rr.Code, "reads stay public")
}
