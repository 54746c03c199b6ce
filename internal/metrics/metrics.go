package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID indexes a counter slot.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshReuseDetected
	MetricRefreshTokenMismatch
	MetricRefreshRaceLost
	MetricRevokeAllTriggered
	MetricSessionCreated
	MetricSessionRevoked
	MetricSessionsPurged
	MetricLogout
	MetricStorageFailure
	MetricRateLimitHit
	MetricAccountCreationSuccess
	MetricAccountCreationDuplicate
	MetricValidateLatency
	MetricIDCount
)

// latencyBounds are the inclusive upper edges, in milliseconds, of every
// histogram bucket but the last, which is unbounded.
var latencyBounds = [...]int64{5, 10, 25, 50, 100, 250, 500}

// BucketCount is the number of histogram buckets, including +Inf.
const BucketCount = len(latencyBounds) + 1

// Config enables counters and the validate latency histogram.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// slot keeps each counter on its own cache line so hot counters do not
// contend.
type slot struct {
	atomic.Uint64
	_ [56]byte
}

// Metrics holds per-ID counters. A nil or disabled *Metrics ignores writes.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [MetricIDCount]slot
	latency       [BucketCount]slot
}

// Snapshot is a point-in-time copy of every counter and histogram.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatency,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add increases a counter by n. Used for bulk outcomes such as revoke-all.
func (m *Metrics) Add(id MetricID, n uint64) {
	if !m.Enabled() || id >= MetricIDCount || n == 0 {
		return
	}
	m.counters[id].Add(n)
}

// Observe records d. Only MetricValidateLatency carries a histogram; other
// ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricValidateLatency {
		return
	}
	m.latency[bucketIndex(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}
	for id := range MetricIDCount {
		s.Counters[id] = m.counters[id].Load()
	}
	if m.enableLatency {
		buckets := make([]uint64, BucketCount)
		for i := range buckets {
			buckets[i] = m.latency[i].Load()
		}
		s.Histograms[MetricValidateLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()
	for i, bound := range latencyBounds {
		if ms <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
