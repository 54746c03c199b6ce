// Package prometheus renders authcore engine metrics in the Prometheus text
// exposition format.
package prometheus
