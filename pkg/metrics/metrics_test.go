package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEngineMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngineMetrics(reg)

	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(false)
	m.ObserveOracleCall("network", 0.2)
	m.ObserveReservation("guest", "confirmed")
	m.ObserveNotification("sent")
	m.SetQueueDepth(3)
	m.ObserveReplay("open_shift", "ok")
	m.ObservePublish("reservations", errors.New("broker down"))

	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.queueDepth); got != 3 {
		t.Errorf("queue depth = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.publishedMessages.WithLabelValues("reservations", "error")); got != 1 {
		t.Errorf("publish errors = %v, want 1", got)
	}
}

func TestEngineMetricsNilSafe(t *testing.T) {
	var m *EngineMetrics
	m.ObserveCacheLookup(true)
	m.ObserveOracleCall("network", 0.1)
	m.ObserveReservation("authenticated", "hold_failed")
	m.ObserveNotification("failed")
	m.SetQueueDepth(1)
	m.ObserveReplay("add_item", "failed")
	m.ObservePublish("t", nil)
}
