// Package metrics provides lock-free counters and a latency histogram for
// authcore.
//
// Counters are stored in cache-line-padded uint64 slots and incremented
// atomically. Histograms use 8 fixed buckets (≤5ms … +Inf). Both are
// allocation-free on the write path.
//
// This package owns storage and snapshots only. Export to Prometheus or
// OpenTelemetry lives in metrics/export and reads [Snapshot] values.
package metrics
