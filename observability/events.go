package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type eventMetrics struct {
	committed *prometheus.CounterVec
	streamed  prometheus.Counter
	dropped   prometheus.Counter
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking committed ledger events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			committed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "padipay",
				Subsystem: "events",
				Name:      "committed_total",
				Help:      "Count of committed events segmented by type.",
			}, []string{"type"}),
			streamed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "padipay",
				Subsystem: "events",
				Name:      "streamed_total",
				Help:      "Events written to websocket subscribers.",
			}),
			dropped: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "padipay",
				Subsystem: "events",
				Name:      "dropped_total",
				Help:      "Events dropped because a subscriber fell behind.",
			}),
		}
		prometheus.MustRegister(eventRegistry.committed, eventRegistry.streamed, eventRegistry.dropped)
	})
	return eventRegistry
}

// RecordCommitted increments the counter for the event type.
func (m *eventMetrics) RecordCommitted(eventType string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(eventType)
	if normalized == "" {
		normalized = "unknown"
	}
	m.committed.WithLabelValues(normalized).Inc()
}

// RecordStreamed counts an event delivered to a subscriber.
func (m *eventMetrics) RecordStreamed() {
	if m != nil {
		m.streamed.Inc()
	}
}

// RecordDropped counts an event a slow subscriber missed.
func (m *eventMetrics) RecordDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}
