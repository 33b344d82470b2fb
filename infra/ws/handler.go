package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/kilianp07/battsim/core/station"
	"github.com/kilianp07/battsim/core/telemetry"
	"github.com/kilianp07/battsim/infra/logger"
)

// Route is the streaming endpoint.
const Route = "GET /api/v1/ws"

// SnapshotSource is implemented by *telemetry.Handle.
type SnapshotSource interface {
	Subscribe() <-chan telemetry.Snapshot
	Unsubscribe(<-chan telemetry.Snapshot)
}

// StationSource is implemented by *station.Station.
type StationSource interface {
	Name() string
	Subscribe() <-chan station.Snapshot
	Unsubscribe(<-chan station.Snapshot)
}

// Handler streams simulation snapshots to WebSocket clients. Clients may
// pass ?simulation=<name> to receive a single simulation.
type Handler struct {
	hub *Hub
	log logger.Logger
	wg  sync.WaitGroup
}

// NewHandler creates a handler with its own hub.
func NewHandler(log logger.Logger) *Handler {
	if log == nil {
		log = logger.New("ws")
	}
	return &Handler{hub: NewHub(log), log: log}
}

// Hub exposes the client registry.
func (h *Handler) Hub() *Hub { return h.hub }

// RegisterRoutes registers the streaming route on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle(Route, h)
}

// ServeHTTP upgrades the connection and streams until the client leaves.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log.Errorf("websocket accept: %v", err)
		return
	}
	client := newClient(conn, r.URL.Query().Get("simulation"), h.log)
	h.hub.Register(client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()
	client.readPump(ctx)

	h.hub.Unregister(client)
	_ = conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// Attach broadcasts the snapshots of src as snapshot messages.
func (h *Handler) Attach(ctx context.Context, name string, src SnapshotSource) {
	sub := src.Subscribe()
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		relay(ctx, h.hub, sub, src.Unsubscribe, func(s telemetry.Snapshot) Message {
			return Message{Type: MessageSnapshot, Simulation: name, Timestamp: s.Time, Data: s}
		})
	}()
}

// AttachStation broadcasts station views as station messages.
func (h *Handler) AttachStation(ctx context.Context, st StationSource) {
	name := st.Name()
	sub := st.Subscribe()
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		relay(ctx, h.hub, sub, st.Unsubscribe, func(s station.Snapshot) Message {
			return Message{Type: MessageStation, Simulation: name, Timestamp: s.Time, Data: s}
		})
	}()
}

// Wait blocks until every relay returned.
func (h *Handler) Wait() { h.wg.Wait() }

func relay[T any](ctx context.Context, hub *Hub, sub <-chan T, unsub func(<-chan T), wrap func(T) Message) {
	defer unsub(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-sub:
			if !ok {
				return
			}
			hub.Broadcast(wrap(v))
		}
	}
}
