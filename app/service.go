package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/kilianp07/battsim/api/simulations"
	apistation "github.com/kilianp07/battsim/api/station"
	"github.com/kilianp07/battsim/config"
	coremetrics "github.com/kilianp07/battsim/core/metrics"
	"github.com/kilianp07/battsim/core/station"
	"github.com/kilianp07/battsim/core/telemetry"
	"github.com/kilianp07/battsim/infra/logger"
	"github.com/kilianp07/battsim/infra/metrics"
	"github.com/kilianp07/battsim/infra/mqtt"
	"github.com/kilianp07/battsim/infra/ws"
)

// Option customizes a Service.
type Option func(*Service)

// WithClock drives every runner from c.
func WithClock(c clock.WithTicker) Option { return func(s *Service) { s.clock = c } }

// WithMQTTClient publishes through c instead of dialing the configured broker.
func WithMQTTClient(c mqtt.Client) Option { return func(s *Service) { s.client = c } }

// Service runs the configured simulations and exposes them over MQTT,
// HTTP, WebSocket and the metrics sinks.
type Service struct {
	cfg   *config.Config
	log   logger.Logger
	clock clock.WithTicker

	sims    map[string]*telemetry.Handle
	order   []string
	station *station.Station
	sink    coremetrics.MetricsSink
	client  mqtt.Client
	bridge  *mqtt.Bridge
	ws      *ws.Handler
	mux     *http.ServeMux

	closeOnce sync.Once
}

// New starts every simulation of cfg. Nothing keeps running when it fails.
func New(cfg *config.Config, opts ...Option) (_ *Service, err error) {
	if err := logger.Configure(cfg.Logging.Options()); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	s := &Service{
		cfg:   cfg,
		log:   logger.New("service"),
		clock: clock.RealClock{},
		sims:  make(map[string]*telemetry.Handle),
	}
	for _, opt := range opts {
		opt(s)
	}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	sims, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	for _, sc := range sims {
		h, err := telemetry.Start(sc, telemetry.WithClock(s.clock), telemetry.WithLogger(logger.New("telemetry")))
		if err != nil {
			return nil, fmt.Errorf("start %s: %w", sc.Name, err)
		}
		s.sims[sc.Name] = h
		s.order = append(s.order, sc.Name)
	}
	if cfg.Station.Enabled {
		st, err := station.New(cfg.Station, station.Options{Clock: s.clock, Logger: logger.New("station")})
		if err != nil {
			return nil, fmt.Errorf("station: %w", err)
		}
		s.station = st
		s.sims[st.Name()] = st.Telemetry()
	}

	if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	if s.client == nil && cfg.MQTT.Enabled {
		if s.client, err = mqtt.NewPahoClient(cfg.MQTT); err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
	}
	if s.client != nil {
		s.bridge = mqtt.NewBridge(s.client, cfg.MQTT.TopicPrefix)
	}

	s.ws = ws.NewHandler(logger.New("ws"))
	s.mux = s.routes()
	return s, nil
}

func (s *Service) routes() *http.ServeMux {
	mux := http.NewServeMux()
	targets := make(map[string]simulations.Target, len(s.sims))
	for name, h := range s.sims {
		targets[name] = h
	}
	simulations.NewHandler(targets, s.cfg.HTTP.Token).RegisterRoutes(mux)
	if s.station != nil {
		apistation.NewHandler(s.station, s.cfg.HTTP.Token).RegisterRoutes(mux)
	}
	s.ws.RegisterRoutes(mux)
	if s.cfg.Metrics.Prometheus() {
		mux.Handle("GET /metrics", metrics.PromHandler(nil))
	}
	return mux
}

// Handler returns the HTTP routes of the service.
func (s *Service) Handler() http.Handler { return s.mux }

// Simulation returns the runner of the named simulation.
func (s *Service) Simulation(name string) (*telemetry.Handle, bool) {
	h, ok := s.sims[name]
	return h, ok
}

// Names lists the running simulations, the station last.
func (s *Service) Names() []string {
	names := append([]string(nil), s.order...)
	sort.Strings(names)
	if s.station != nil {
		names = append(names, s.station.Name())
	}
	return names
}

// Station returns the station or nil when it is disabled.
func (s *Service) Station() *station.Station { return s.station }

// Run attaches every observer and blocks until ctx is canceled or a server
// fails.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var collectors []<-chan struct{}
	for _, name := range s.Names() {
		h := s.sims[name]
		collectors = append(collectors, metrics.StartSnapshotCollector(ctx, h, s.sink))
		if s.station == nil || name != s.station.Name() {
			s.ws.Attach(ctx, name, h)
			if s.bridge != nil {
				if err := s.bridge.Attach(ctx, name, h); err != nil {
					return err
				}
			}
		}
	}
	if s.station != nil {
		s.ws.AttachStation(ctx, s.station)
		s.ws.Attach(ctx, s.station.Name(), s.station.Telemetry())
		if s.bridge != nil {
			if err := s.bridge.AttachStation(ctx, s.station); err != nil {
				return err
			}
		}
	}

	errCh := make(chan error, 2)
	var servers sync.WaitGroup
	if s.cfg.HTTP.Enabled {
		servers.Add(1)
		go func() {
			defer servers.Done()
			if err := serveHTTP(ctx, s.cfg.HTTP.Addr, s.mux, s.log); err != nil {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		servers.Add(1)
		go func() {
			defer servers.Done()
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				errCh <- fmt.Errorf("prom server: %w", err)
			}
		}()
	}
	s.log.Infof("running %d simulation(s): %v", len(s.sims), s.Names())

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}
	cancel()
	servers.Wait()
	for _, done := range collectors {
		<-done
	}
	if s.bridge != nil {
		s.bridge.Wait()
	}
	s.ws.Wait()
	return err
}

func serveHTTP(ctx context.Context, addr string, h http.Handler, log logger.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("http server shutdown: %v", err)
		}
	}()
	log.Infof("serving api on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops every runner and releases the transports. It is idempotent.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		for _, name := range s.order {
			s.sims[name].Stop()
		}
		if s.station != nil {
			s.station.Stop()
		}
		if s.client != nil {
			s.client.Disconnect()
		}
		closeSink(s.sink)
	})
	return nil
}

func closeSink(sink coremetrics.MetricsSink) {
	switch v := sink.(type) {
	case *coremetrics.MultiSink:
		for _, inner := range v.Sinks {
			closeSink(inner)
		}
	case interface{ Close() }:
		v.Close()
	}
}
