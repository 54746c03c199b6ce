// Package otel registers authcore engine counters and the validate latency
// histogram as OpenTelemetry observable instruments.
package otel
