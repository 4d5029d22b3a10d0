package conman

import (
	"github.com/nodewire/p2pd/errcode"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "p2pd"

// metrics are the connection manager's prometheus collectors.
type metrics struct {
	accepted      prometheus.Counter
	refused       prometheus.Counter
	closed        *prometheus.CounterVec
	connectFailed *prometheus.CounterVec
	connections   *prometheus.GaugeVec
	commands      prometheus.Counter
}

// newMetrics creates the collectors, registering them with reg if it is non
// nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		accepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "p2p",
			Name:      "accepted_total",
			Help:      "Inbound connections accepted.",
		}),
		refused: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "p2p",
			Name:      "refused_total",
			Help:      "Inbound connections refused in isolated mode.",
		}),
		closed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "p2p",
			Name:      "closed_total",
			Help:      "Connections closed, by error code.",
		}, []string{"code"}),
		connectFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "p2p",
			Name:      "connect_failures_total",
			Help:      "Failed outbound connection attempts, by code.",
		}, []string{"code"}),
		connections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "p2p",
			Name:      "connections",
			Help:      "Live connections, by direction.",
		}, []string{"direction"}),
		commands: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "p2p",
			Name:      "commands_total",
			Help:      "Commands executed by the event loop.",
		}),
	}
}

func direction(inbound bool) string {
	if inbound {
		return "in"
	}

	return "out"
}

func (m *metrics) connOpened(inbound bool) {
	m.connections.WithLabelValues(direction(inbound)).Inc()
}

func (m *metrics) connRemoved(inbound bool) {
	m.connections.WithLabelValues(direction(inbound)).Dec()
}

func (m *metrics) connClosed(code errcode.Code) {
	m.closed.WithLabelValues(code.Name()).Inc()
}

func (m *metrics) dialFailed(code errcode.Code) {
	m.connectFailed.WithLabelValues(code.Name()).Inc()
}
