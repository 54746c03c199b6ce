package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestDisabledMetricsStayZero(t *testing.T) {
	for name, m := range map[string]*Metrics{
		"nil":      nil,
		"disabled": New(Config{Enabled: false, EnableLatency: true}),
	} {
		t.Run(name, func(t *testing.T) {
			m.Inc(MetricLoginSuccess)
			m.Add(MetricLogout, 4)
			m.Observe(MetricValidateLatency, time.Millisecond)

			if m.Value(MetricLoginSuccess) != 0 || m.Value(MetricLogout) != 0 {
				t.Fatal("disabled metrics recorded a value")
			}
			if m.Enabled() || m.LatencyEnabled() {
				t.Fatal("disabled metrics report enabled")
			}
			snap := m.Snapshot()
			if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
				t.Fatalf("snapshot not empty: %+v", snap)
			}
		})
	}
}

func TestCountersAccumulate(t *testing.T) {
	m := New(Config{Enabled: true})
	m.Inc(MetricRefreshReuseDetected)
	m.Inc(MetricRefreshReuseDetected)
	m.Add(MetricSessionRevoked, 5)
	m.Add(MetricSessionRevoked, 0)

	snap := m.Snapshot()
	if got := snap.Counters[MetricRefreshReuseDetected]; got != 2 {
		t.Fatalf("reuse counter = %d, want 2", got)
	}
	if got := snap.Counters[MetricSessionRevoked]; got != 5 {
		t.Fatalf("revoked counter = %d, want 5", got)
	}
	if got := snap.Counters[MetricLoginFailure]; got != 0 {
		t.Fatalf("untouched counter = %d, want 0", got)
	}
}

func TestCountersAreRaceFree(t *testing.T) {
	m := New(Config{Enabled: true})
	const workers, each = 16, 2500

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range each {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricRefreshSuccess); got != workers*each {
		t.Fatalf("refresh counter = %d, want %d", got, workers*each)
	}
}

func TestLatencyBuckets(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatency: true})

	// One observation per bucket, edges inclusive, plus one overflow.
	for _, ms := range []int{1, 10, 11, 50, 99, 250, 400, 5000} {
		m.Observe(MetricValidateLatency, time.Duration(ms)*time.Millisecond)
	}
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	got := snap.Histograms[MetricValidateLatency]
	want := []uint64{1, 1, 1, 1, 1, 1, 1, 1}
	if len(got) != BucketCount {
		t.Fatalf("bucket count = %d, want %d", len(got), BucketCount)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("buckets = %v, want %v", got, want)
		}
	}
	if _, ok := snap.Histograms[MetricLoginSuccess]; ok {
		t.Fatal("counters must not grow a histogram")
	}
}
