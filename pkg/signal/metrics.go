package signal

import (
	"github.com/giongto35/cloud-call/pkg/api"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "signal"

type Metrics struct {
	clients     prometheus.Gauge
	relayed     *prometheus.CounterVec
	undelivered *prometheus.CounterVec
	malformed   prometheus.Counter
	dropped     prometheus.Counter
}

// NewMetrics makes relay metrics and registers them in reg if it's not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clients_connected",
			Help:      "Number of connected clients.",
		}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_relayed_total",
			Help:      "Messages forwarded to their target.",
		}, []string{"type"}),
		undelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_undelivered_total",
			Help:      "Messages dropped because the target wasn't found.",
		}, []string{"type"}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_malformed_total",
			Help:      "Messages that couldn't be parsed or relayed.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Messages dropped by full client send queues.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.clients, m.relayed, m.undelivered, m.malformed, m.dropped)
	}
	return m
}

func (m *Metrics) connected(n int)             { m.clients.Set(float64(n)) }
func (m *Metrics) relay(t api.MessageType)     { m.relayed.WithLabelValues(string(t)).Inc() }
func (m *Metrics) undeliver(t api.MessageType) { m.undelivered.WithLabelValues(string(t)).Inc() }
func (m *Metrics) malform()                    { m.malformed.Inc() }
func (m *Metrics) drop()                       { m.dropped.Inc() }
