package metrics

import "github.com/prometheus/client_golang/prometheus"

// EngineMetrics exposes counters/histograms for the reservation engine.
// A nil *EngineMetrics is valid and records nothing.
type EngineMetrics struct {
	cacheLookups      *prometheus.CounterVec
	oracleCalls       *prometheus.CounterVec
	oracleLatency     prometheus.Histogram
	reservations      *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	queueDepth        prometheus.Gauge
	replayed          *prometheus.CounterVec
	publishedMessages *prometheus.CounterVec
}

func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotkeeper",
			Subsystem: "availability",
			Name:      "cache_lookups_total",
			Help:      "Availability cache lookups by result",
		}, []string{"result"}),
		oracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotkeeper",
			Subsystem: "availability",
			Name:      "oracle_calls_total",
			Help:      "Availability oracle calls by outcome category",
		}, []string{"category"}),
		oracleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "slotkeeper",
			Subsystem: "availability",
			Name:      "oracle_latency_seconds",
			Help:      "Latency of availability oracle calls",
			Buckets:   prometheus.DefBuckets,
		}),
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotkeeper",
			Subsystem: "reservations",
			Name:      "outcomes_total",
			Help:      "Reservation attempts by path and outcome",
		}, []string{"path", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotkeeper",
			Subsystem: "reservations",
			Name:      "notifications_total",
			Help:      "Notification dispatch attempts by status",
		}, []string{"status"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "slotkeeper",
			Subsystem: "offline",
			Name:      "queue_depth",
			Help:      "Operations waiting in the offline queue",
		}),
		replayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotkeeper",
			Subsystem: "offline",
			Name:      "replayed_total",
			Help:      "Replayed offline operations by kind and status",
		}, []string{"kind", "status"}),
		publishedMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotkeeper",
			Subsystem: "kafka",
			Name:      "published_total",
			Help:      "Kafka publish attempts by topic and status",
		}, []string{"topic", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.cacheLookups,
		m.oracleCalls,
		m.oracleLatency,
		m.reservations,
		m.notifications,
		m.queueDepth,
		m.replayed,
		m.publishedMessages,
	)
	return m
}

func (m *EngineMetrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *EngineMetrics) ObserveOracleCall(category string, seconds float64) {
	if m == nil {
		return
	}
	m.oracleCalls.WithLabelValues(category).Inc()
	m.oracleLatency.Observe(seconds)
}

func (m *EngineMetrics) ObserveReservation(path, outcome string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(path, outcome).Inc()
}

func (m *EngineMetrics) ObserveNotification(status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(status).Inc()
}

func (m *EngineMetrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

func (m *EngineMetrics) ObserveReplay(kind, status string) {
	if m == nil {
		return
	}
	m.replayed.WithLabelValues(kind, status).Inc()
}

func (m *EngineMetrics) ObservePublish(topic string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.publishedMessages.WithLabelValues(topic, status).Inc()
}
