package relay

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
)

// Reasons a frame is dropped without being relayed.
const (
	DropMalformed    = "malformed"
	DropUnknownType  = "unknown_type"
	DropEmptyContent = "empty_content"
)

// Metrics holds the relay's prometheus collectors.
type Metrics struct {
	messages        *prometheus.CounterVec
	framesDropped   *prometheus.CounterVec
	fanoutFailures  prometheus.Counter
	persistFailures prometheus.Counter
}

// NewMetrics creates the relay collectors and registers them with reg. The
// connection gauges read live counts from registry at scrape time. A nil reg
// leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer, registry *Registry) *Metrics {
	m := &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Chat messages persisted and fanned out, by author role.",
		}, []string{"role"}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_frames_dropped_total",
			Help: "Inbound frames ignored without a reply, by reason.",
		}, []string{"reason"}),
		fanoutFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_fanout_failures_total",
			Help: "Deliveries that failed and disconnected the target socket.",
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_persist_failures_total",
			Help: "Messages rejected because the store failed to persist them.",
		}),
	}

	if reg == nil {
		return m
	}

	reg.MustRegister(m.messages, m.framesDropped, m.fanoutFailures, m.persistFailures)
	for _, role := range []chat.Role{chat.RoleCustomer, chat.RoleOperator} {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "relay_connections",
			Help:        "Live websocket connections, by role.",
			ConstLabels: prometheus.Labels{"role": string(role)},
		}, func() float64 {
			return float64(registry.Count(role))
		}))
	}

	return m
}

func (m *Metrics) messageRelayed(role chat.Role) {
	m.messages.WithLabelValues(string(role)).Inc()
}

func (m *Metrics) frameDropped(reason string) {
	m.framesDropped.WithLabelValues(reason).Inc()
}
