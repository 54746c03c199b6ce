package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

// histogram reports cumulative bucket counts on one gauge, one data point
// per "le" attribute, plus a sample count gauge.
type histogram struct {
	id      authcore.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter observes engine snapshots on every collection.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     map[authcore.MetricID]metric.Int64ObservableCounter
	histograms   []histogram
	leOptions    []metric.ObserveOption
	auditDropped metric.Int64ObservableCounter
}

// NewExporter registers instruments on meter that read from engine.
func NewExporter(meter metric.Meter, engine *authcore.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	switch {
	case meter == nil:
		return nil, ErrNilMeter
	case source == nil:
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:   source,
		counters: make(map[authcore.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}
	for _, le := range internaldefs.HistogramBounds {
		e.leOptions = append(e.leOptions, metric.WithAttributes(attribute.String("le", le)))
	}

	var observables []metric.Observable
	counter := func(def internaldefs.Def) (metric.Int64ObservableCounter, error) {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		observables = append(observables, ins)
		return ins, nil
	}
	gauge := func(name, help string) (metric.Int64ObservableGauge, error) {
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription(help))
		if err != nil {
			return nil, fmt.Errorf("gauge %s: %w", name, err)
		}
		observables = append(observables, ins)
		return ins, nil
	}

	var err error
	for _, def := range internaldefs.CounterDefs {
		if e.counters[def.ID], err = counter(def); err != nil {
			return nil, err
		}
	}
	for _, def := range internaldefs.HistogramDefs {
		h := histogram{id: def.ID}
		if h.buckets, err = gauge(def.Name+"_bucket", def.Help+" Cumulative count per upper bound."); err != nil {
			return nil, err
		}
		if h.count, err = gauge(def.Name+"_count", def.Help+" Total samples."); err != nil {
			return nil, err
		}
		e.histograms = append(e.histograms, h)
	}
	if e.auditDropped, err = counter(internaldefs.AuditDropped); err != nil {
		return nil, err
	}

	if e.registration, err = meter.RegisterCallback(e.observe, observables...); err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for id, ins := range e.counters {
		o.ObserveInt64(ins, int64(snap.Counters[id]))
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.Cumulative(snap.Histograms[h.id])
		for i, v := range cumulative {
			o.ObserveInt64(h.buckets, int64(v), e.leOptions[i])
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
