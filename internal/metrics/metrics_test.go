package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCycle(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCycle(10*time.Millisecond, nil)
	m.ObserveCycle(10*time.Millisecond, nil)
	m.ObserveCycle(10*time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.SyncCycles.WithLabelValues("ok")); got != 2 {
		t.Errorf("ok cycles = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SyncCycles.WithLabelValues("error")); got != 1 {
		t.Errorf("error cycles = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.SyncDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordDiscovered(3)
	m.RecordDiscovered(0)
	m.RecordDropped(1)
	m.RecordPublish(7)
	m.RecordRequest("save_photo")
	m.RecordRequest("save_photo")
	m.SetQueueDepth(4)

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"discovered", m.DiscoveredRecords, 3},
		{"dropped", m.DroppedRecords, 1},
		{"publishes", m.Publishes, 1},
		{"photos", m.Photos, 7},
		{"requests", m.Requests.WithLabelValues("save_photo"), 2},
		{"queue", m.QueueDepth, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveCycle(time.Second, nil)
	m.RecordDiscovered(1)
	m.RecordDropped(1)
	m.RecordPublish(1)
	m.RecordRequest("x")
	m.SetQueueDepth(1)
}

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RecordRequest("save_photo")
	m.ObserveCycle(time.Millisecond, nil)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"lens_sync_cycles_total",
		"lens_sync_cycle_duration_seconds",
		"lens_service_requests_total",
		"lens_photos",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}
