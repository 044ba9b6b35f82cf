// Package signal is the rendezvous server: it gives every connected client an id,
// relays offers, answers and ICE candidates between them, and announces
// who comes and goes.
package signal

import (
	"context"
	"time"

	"github.com/giongto35/cloud-call/pkg/config"
	"github.com/giongto35/cloud-call/pkg/logger"
	"github.com/giongto35/cloud-call/pkg/monitoring"
	"github.com/giongto35/cloud-call/pkg/network/httpx"
	"github.com/giongto35/cloud-call/pkg/service"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
)

type Signal struct {
	Registry *Registry
	Relay    *Relay

	ws       *Server
	http     *httpx.Server
	services service.Group
	log      *logger.Logger
}

func New(conf config.SignalConfig, log *logger.Logger) (*Signal, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	registry := NewRegistry()
	relay := NewRelay(registry, NewMetrics(reg), log)
	ws := NewServer(relay, conf.Signal.Socket, log)

	h, err := httpx.NewServer(
		conf.Signal.Server.GetAddr(),
		func(*httpx.Server) httpx.Handler { return ws.Routes(conf.Signal.Path, registry) },
		httpx.WithServerConfig(conf.Signal.Server),
		httpx.WithLogger(log),
		// websocket connections are long-living
		httpx.WithTimeouts(120*time.Second, 0),
	)
	if err != nil {
		return nil, err
	}

	s := &Signal{Registry: registry, Relay: relay, ws: ws, http: h, log: log}
	if conf.Signal.Monitoring.IsEnabled() {
		mon, err := monitoring.New(conf.Signal.Monitoring, reg, log)
		if err != nil {
			_ = h.Shutdown(context.Background())
			return nil, err
		}
		s.services.Add(mon)
	}
	s.services.Add(h)
	return s, nil
}

func (s *Signal) Start() {
	s.log.Info().Msgf("Signaling at %v", s.http)
	s.services.Start()
}

// Addr is the actual address of the HTTP server.
func (s *Signal) Addr() string { return s.http.Addr }

// Shutdown stops accepting clients and drops the connected ones.
func (s *Signal) Shutdown(ctx context.Context) error {
	var result error
	if err := s.services.Shutdown(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.ws.Close(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}
