// Package simulations exposes the running simulations over HTTP.
package simulations

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/kilianp07/battsim/api"
	"github.com/kilianp07/battsim/core/telemetry"
)

// Target is implemented by *telemetry.Handle.
type Target interface {
	Snapshot() telemetry.Snapshot
	InjectSpec(spec *telemetry.AnomalySpec) (string, error)
	Acknowledge()
}

// Summary is one entry of the simulation list.
type Summary struct {
	Name          string          `json:"name"`
	RunID         string          `json:"run_id"`
	Phase         telemetry.Phase `json:"phase"`
	AnomalyActive bool            `json:"anomaly_active"`
	Anomalies     int             `json:"anomalies"`
	Ticks         uint64          `json:"ticks"`
}

// Handler serves /api/v1/simulations. The target set is fixed at
// construction.
type Handler struct {
	targets map[string]Target
	token   string
}

// NewHandler creates a handler over targets. Commands require token when it
// is not empty.
func NewHandler(targets map[string]Target, token string) *Handler {
	return &Handler{targets: targets, token: token}
}

// RegisterRoutes registers the simulation routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/simulations", h.list)
	mux.HandleFunc("GET /api/v1/simulations/{name}", h.get)
	mux.Handle("POST /api/v1/simulations/{name}/acknowledge", api.RequireToken(h.token, http.HandlerFunc(h.acknowledge)))
	mux.Handle("POST /api/v1/simulations/{name}/anomaly", api.RequireToken(h.token, http.HandlerFunc(h.anomaly)))
}

func (h *Handler) list(w http.ResponseWriter, _ *http.Request) {
	out := make([]Summary, 0, len(h.targets))
	for name, t := range h.targets {
		s := t.Snapshot()
		out = append(out, Summary{
			Name:          name,
			RunID:         s.RunID,
			Phase:         s.Phase,
			AnomalyActive: s.AnomalyActive,
			Anomalies:     s.Anomalies,
			Ticks:         s.Ticks,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	api.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (Target, bool) {
	name := r.PathValue("name")
	t, ok := h.targets[name]
	if !ok {
		api.WriteError(w, http.StatusNotFound, "unknown simulation "+name)
	}
	return t, ok
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	if t, ok := h.lookup(w, r); ok {
		api.WriteJSON(w, http.StatusOK, t.Snapshot())
	}
}

func (h *Handler) acknowledge(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, r)
	if !ok {
		return
	}
	t.Acknowledge()
	api.WriteJSON(w, http.StatusOK, t.Snapshot())
}

// anomaly injects the JSON AnomalySpec of the body, or the configured
// anomaly when the body is empty.
func (h *Handler) anomaly(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var spec *telemetry.AnomalySpec
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(body) > 0 {
		spec = &telemetry.AnomalySpec{}
		if err := json.Unmarshal(body, spec); err != nil {
			api.WriteError(w, http.StatusBadRequest, "decode anomaly: "+err.Error())
			return
		}
	}
	id, err := t.InjectSpec(spec)
	switch {
	case err == nil:
		api.WriteJSON(w, http.StatusAccepted, map[string]string{"id": id})
	case telemetry.IsConfigurationError(err):
		api.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, telemetry.ErrStopped):
		api.WriteError(w, http.StatusConflict, err.Error())
	default:
		api.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
