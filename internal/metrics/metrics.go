// Package metrics exposes chat activity as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tyrowin/linechat/internal/chat"
)

const namespace = "linechat"

// Metrics implements chat.Observer on top of Prometheus collectors.
type Metrics struct {
	connectionsTotal  prometheus.Counter
	connectionsActive prometheus.Gauge
	roomsActive       prometheus.Gauge
	published         prometheus.Counter
	commands          *prometheus.CounterVec
	protocolErrors    *prometheus.CounterVec
	dropped           prometheus.Counter
}

var _ chat.Observer = (*Metrics)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Chat sessions opened since start.",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Chat sessions currently open.",
		}),
		roomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Rooms with at least one member.",
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "Room broadcasts queued, counted once per receiving subscriber.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Recognised slash-commands executed.",
		}, []string{"command"}),
		protocolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Rejected command lines by kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Broadcasts discarded because a subscriber queue was full.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.connectionsTotal,
		m.connectionsActive,
		m.roomsActive,
		m.published,
		m.commands,
		m.protocolErrors,
		m.dropped,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// SessionOpened counts a new connection and marks it active.
func (m *Metrics) SessionOpened() {
	m.connectionsTotal.Inc()
	m.connectionsActive.Inc()
}

// SessionClosed marks a connection inactive.
func (m *Metrics) SessionClosed() {
	m.connectionsActive.Dec()
}

// RoomCount records the current number of live rooms.
func (m *Metrics) RoomCount(n int) {
	m.roomsActive.Set(float64(n))
}

// Published adds the number of deliveries queued by one broadcast.
func (m *Metrics) Published(receivers int) {
	m.published.Add(float64(receivers))
}

// Command counts one executed command by name.
func (m *Metrics) Command(name string) {
	m.commands.WithLabelValues(name).Inc()
}

// ProtocolError counts a rejected command line by kind.
func (m *Metrics) ProtocolError(err error) {
	m.protocolErrors.WithLabelValues(chat.ProtocolErrorKind(err)).Inc()
}

// Dropped adds messages lost by slow subscribers.
func (m *Metrics) Dropped(n uint64) {
	if n > 0 {
		m.dropped.Add(float64(n))
	}
}

// Handler exposes the metrics gathered by g at /metrics.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
