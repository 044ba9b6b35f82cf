package monitoring

import (
	"context"
	"fmt"
	"net/http/pprof"

	"github.com/giongto35/cloud-call/pkg/config"
	"github.com/giongto35/cloud-call/pkg/logger"
	"github.com/giongto35/cloud-call/pkg/network/httpx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Monitoring struct {
	conf   config.Monitoring
	server *httpx.Server
	log    *logger.Logger
}

// New creates new monitoring service.
// Metrics are taken from the gatherer, the default registry if nil.
func New(conf config.Monitoring, gatherer prometheus.Gatherer, log *logger.Logger) (*Monitoring, error) {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	serv, err := httpx.NewServer(
		fmt.Sprintf(":%d", conf.Port),
		func(serv *httpx.Server) httpx.Handler {
			h := httpx.NewServeMux(conf.URLPrefix)
			if conf.ProfilingEnabled {
				h.HandleFunc("/debug/pprof/", pprof.Index).
					HandleFunc("/debug/pprof/cmdline", pprof.Cmdline).
					HandleFunc("/debug/pprof/profile", pprof.Profile).
					HandleFunc("/debug/pprof/symbol", pprof.Symbol).
					HandleFunc("/debug/pprof/trace", pprof.Trace)
				// custom pprof paths need explicit named handlers
				for _, p := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
					h.Handle("/debug/pprof/"+p, pprof.Handler(p))
				}
				log.Info().Msgf("Profiling is enabled at %v", serv.Addr+conf.URLPrefix+"/debug/pprof")
			}
			if conf.MetricEnabled {
				h.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
				log.Info().Msgf("Prometheus metrics are enabled at %v", serv.Addr+conf.URLPrefix+"/metrics")
			}
			return h
		},
		httpx.WithPortRoll(true),
		httpx.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	return &Monitoring{conf: conf, server: serv, log: log}, nil
}

func (m *Monitoring) Run() {
	m.log.Info().Msgf("Starting monitoring server at %v", m.server.Addr)
	m.server.Run()
}

func (m *Monitoring) Shutdown(ctx context.Context) error {
	m.log.Debug().Msg("Shutting down monitoring server")
	return m.server.Shutdown(ctx)
}

func (m *Monitoring) Addr() string { return m.server.Addr }

func (m *Monitoring) String() string {
	return fmt.Sprintf("monitoring::%s:%d", m.conf.URLPrefix, m.conf.Port)
}
