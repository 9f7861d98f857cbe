package otel

import (
	"context"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/secureauthx/secureauthx"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot secureauthx.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() secureauthx.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := secureauthx.MetricsSnapshot{
		Counters:   make(map[secureauthx.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[secureauthx.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReaderMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func int64Value(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				return data.DataPoints[0].Value
			case metricdata.Gauge[int64]:
				return data.DataPoints[0].Value
			}
			t.Fatalf("metric %s has unexpected data type %T", name, m.Data)
		}
	}
	t.Fatalf("metric %s not collected", name)
	return 0
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newReaderMeter()
	meter := provider.Meter("secureauthx-test")

	src := &fakeSource{
		snapshot: secureauthx.MetricsSnapshot{
			Counters: map[secureauthx.MetricID]uint64{
				secureauthx.MetricRefreshReplayDetected: 3,
			},
			Histograms: map[secureauthx.MetricID][]uint64{
				secureauthx.MetricValidateLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if got := int64Value(t, rm, "secureauthx_refresh_replay_detected_total"); got != 3 {
		t.Fatalf("expected replay counter 3, got %d", got)
	}
	if got := int64Value(t, rm, "secureauthx_validate_latency_seconds_bucket_le_0_025"); got != 3 {
		t.Fatalf("expected cumulative bucket 3, got %d", got)
	}
	if got := int64Value(t, rm, "secureauthx_validate_latency_seconds_count"); got != 8 {
		t.Fatalf("expected histogram count 8, got %d", got)
	}
	if got := int64Value(t, rm, "secureauthx_audit_dropped_total"); got != 1 {
		t.Fatalf("expected audit dropped 1, got %d", got)
	}
}

func TestExporterRejectsNilArguments(t *testing.T) {
	_, provider := newReaderMeter()
	meter := provider.Meter("secureauthx-test")

	if _, err := NewExporterFromSource(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
	if _, err := NewExporter(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource for nil engine, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReaderMeter()
	meter := provider.Meter("secureauthx-test")

	src := &fakeSource{
		snapshot: secureauthx.MetricsSnapshot{
			Counters: map[secureauthx.MetricID]uint64{
				secureauthx.MetricLoginSuccess: 1,
			},
			Histograms: map[secureauthx.MetricID][]uint64{
				secureauthx.MetricValidateLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[secureauthx.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
