// Package station exposes the charging station over HTTP.
package station

import (
	"errors"
	"net/http"

	"github.com/kilianp07/battsim/api"
	corestation "github.com/kilianp07/battsim/core/station"
)

// Target is implemented by *station.Station.
type Target interface {
	Snapshot() corestation.Snapshot
	Select(id string) (bool, error)
}

// SelectResult is the body returned by the select route.
type SelectResult struct {
	Triggered bool                 `json:"triggered"`
	Station   corestation.Snapshot `json:"station"`
}

// Handler serves /api/v1/station.
type Handler struct {
	st    Target
	token string
}

// NewHandler creates a handler. Selection requires token when it is not
// empty.
func NewHandler(st Target, token string) *Handler {
	return &Handler{st: st, token: token}
}

// RegisterRoutes registers the station routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/station", h.get)
	mux.Handle("POST /api/v1/station/select/{id}", api.RequireToken(h.token, http.HandlerFunc(h.sel)))
}

func (h *Handler) get(w http.ResponseWriter, _ *http.Request) {
	api.WriteJSON(w, http.StatusOK, h.st.Snapshot())
}

func (h *Handler) sel(w http.ResponseWriter, r *http.Request) {
	triggered, err := h.st.Select(r.PathValue("id"))
	switch {
	case errors.Is(err, corestation.ErrUnknownVehicle):
		api.WriteError(w, http.StatusNotFound, err.Error())
	case err != nil:
		api.WriteError(w, http.StatusConflict, err.Error())
	default:
		api.WriteJSON(w, http.StatusOK, SelectResult{Triggered: triggered, Station: h.st.Snapshot()})
	}
}
