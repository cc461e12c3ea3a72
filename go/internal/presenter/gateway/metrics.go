package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	activeSessions  prometheus.Gauge
	presenterActive prometheus.Gauge
	eventsTotal     *prometheus.CounterVec
	authAttempts    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	framesSent      prometheus.Counter
	slowClients     prometheus.Counter
}

// NewMetrics registers the gateway collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "presenter",
			Name:      "active_sessions",
			Help:      "Number of connected WebSocket sessions",
		}),
		presenterActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "presenter",
			Name:      "presenter_active",
			Help:      "1 while a session holds presenter authority",
		}),
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "presenter",
			Name:      "events_total",
			Help:      "Inbound events by request kind and outcome",
		}, []string{"kind", "outcome"}),
		authAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "presenter",
			Name:      "auth_attempts_total",
			Help:      "Presenter authentication attempts by result",
		}, []string{"result"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "presenter",
			Name:      "authority_transitions_total",
			Help:      "Presenter authority transitions by kind",
		}, []string{"kind"}),
		framesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "presenter",
			Name:      "frames_sent_total",
			Help:      "Frames queued to client connections",
		}),
		slowClients: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "presenter",
			Name:      "slow_clients_total",
			Help:      "Connections closed because their send buffer was full",
		}),
	}
}

func (m *Metrics) event(kind RequestKind, outcome string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(kind.String(), outcome).Inc()
}

func (m *Metrics) auth(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.authAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) transition(kind string, active bool) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind).Inc()
	if active {
		m.presenterActive.Set(1)
	} else {
		m.presenterActive.Set(0)
	}
}

func (m *Metrics) sessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *Metrics) frameSent() {
	if m == nil {
		return
	}
	m.framesSent.Inc()
}

func (m *Metrics) slowClient() {
	if m == nil {
		return
	}
	m.slowClients.Inc()
}
