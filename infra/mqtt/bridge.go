package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	coremqtt "github.com/kilianp07/battsim/core/mqtt"
	"github.com/kilianp07/battsim/core/station"
	"github.com/kilianp07/battsim/core/telemetry"
	"github.com/kilianp07/battsim/infra/logger"
)

// Target is the command surface of a running simulation. *telemetry.Handle
// implements it.
type Target interface {
	Subscribe() <-chan telemetry.Snapshot
	Unsubscribe(<-chan telemetry.Snapshot)
	InjectSpec(spec *telemetry.AnomalySpec) (string, error)
	Acknowledge()
}

// StationTarget is implemented by *station.Station.
type StationTarget interface {
	Name() string
	Telemetry() *telemetry.Handle
	Subscribe() <-chan station.Snapshot
	Unsubscribe(<-chan station.Snapshot)
	Select(id string) (bool, error)
}

// Bridge publishes snapshots of attached simulations and dispatches the
// commands received on their command topics.
type Bridge struct {
	client Client
	prefix string
	log    logger.Logger

	mu       sync.RWMutex
	targets  map[string]Target
	stations map[string]StationTarget
	wg       sync.WaitGroup
}

// NewBridge creates a Bridge publishing under prefix.
func NewBridge(client Client, prefix string) *Bridge {
	if prefix == "" {
		prefix = coremqtt.DefaultPrefix
	}
	return &Bridge{
		client:   client,
		prefix:   prefix,
		log:      logger.New("mqtt_bridge"),
		targets:  make(map[string]Target),
		stations: make(map[string]StationTarget),
	}
}

// Attach publishes the snapshots of t on <prefix>/<name>/snapshot and
// subscribes to its command topics.
func (b *Bridge) Attach(ctx context.Context, name string, t Target) error {
	b.mu.Lock()
	if _, dup := b.targets[name]; dup {
		b.mu.Unlock()
		return fmt.Errorf("simulation %q already attached", name)
	}
	b.targets[name] = t
	b.mu.Unlock()

	if err := b.client.Subscribe(coremqtt.CommandFilter(b.prefix, name), b.onMessage); err != nil {
		return fmt.Errorf("subscribe commands of %s: %w", name, err)
	}
	sub := t.Subscribe()
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		forward(ctx, b, coremqtt.SnapshotTopic(b.prefix, name), sub, t.Unsubscribe)
	}()
	return nil
}

// AttachStation attaches the station telemetry and publishes station views
// on <prefix>/<name>/station. The select command becomes available.
func (b *Bridge) AttachStation(ctx context.Context, st StationTarget) error {
	name := st.Name()
	b.mu.Lock()
	b.stations[name] = st
	b.mu.Unlock()
	if err := b.Attach(ctx, name, st.Telemetry()); err != nil {
		return err
	}
	sub := st.Subscribe()
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		forward(ctx, b, coremqtt.StationTopic(b.prefix, name), sub, st.Unsubscribe)
	}()
	return nil
}

// Wait blocks until every publishing goroutine returned.
func (b *Bridge) Wait() { b.wg.Wait() }

func forward[T any](ctx context.Context, b *Bridge, topic string, sub <-chan T, unsub func(<-chan T)) {
	defer unsub(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-sub:
			if !ok {
				return
			}
			if err := b.client.Publish(topic, v); err != nil {
				b.log.Errorf("publish %s: %v", topic, err)
			}
		}
	}
}

func (b *Bridge) onMessage(topic string, payload []byte) {
	if err := b.Dispatch(topic, payload); err != nil {
		b.log.Errorf("command %s: %v", topic, err)
	}
}

// Dispatch executes the command addressed by topic.
func (b *Bridge) Dispatch(topic string, payload []byte) error {
	sim, cmd, ok := coremqtt.ParseCommandTopic(b.prefix, topic)
	if !ok {
		return fmt.Errorf("%w: %s", coremqtt.ErrUnknownCommand, topic)
	}
	b.mu.RLock()
	t, hasTarget := b.targets[sim]
	st, hasStation := b.stations[sim]
	b.mu.RUnlock()
	if !hasTarget {
		return fmt.Errorf("unknown simulation %q", sim)
	}
	switch cmd {
	case coremqtt.CmdAcknowledge:
		t.Acknowledge()
		b.log.Infof("%s: acknowledged over mqtt", sim)
		return nil
	case coremqtt.CmdAnomaly:
		var spec *telemetry.AnomalySpec
		if len(bytes.TrimSpace(payload)) > 0 {
			spec = &telemetry.AnomalySpec{}
			if err := json.Unmarshal(payload, spec); err != nil {
				return fmt.Errorf("decode anomaly: %w", err)
			}
		}
		id, err := t.InjectSpec(spec)
		if err != nil {
			return err
		}
		b.log.Infof("%s: anomaly %s injected over mqtt", sim, id)
		return nil
	case coremqtt.CmdSelect:
		if !hasStation {
			return fmt.Errorf("%w: %s is not a station", coremqtt.ErrUnknownCommand, sim)
		}
		_, err := st.Select(vehicleID(payload))
		return err
	default:
		return fmt.Errorf("%w: %s", coremqtt.ErrUnknownCommand, cmd)
	}
}

// vehicleID accepts a bare id, a JSON string or {"id": "..."}.
func vehicleID(payload []byte) string {
	raw := bytes.TrimSpace(payload)
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		ID json.RawMessage `json:"id"`
	}
	if json.Unmarshal(raw, &obj) == nil && len(obj.ID) > 0 {
		if json.Unmarshal(obj.ID, &s) == nil {
			return s
		}
		return string(obj.ID)
	}
	return strings.TrimSpace(string(raw))
}
