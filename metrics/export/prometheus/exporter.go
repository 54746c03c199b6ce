package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/metrics/export/internaldefs"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter renders engine metrics in Prometheus text exposition format.
type Exporter struct {
	source metricsSource
}

// NewExporter creates an exporter that reads from engine.
func NewExporter(engine *authcore.Engine) *Exporter {
	return &Exporter{source: engine}
}

// NewExporterFromSource reads from any snapshot source.
func NewExporterFromSource(source metricsSource) *Exporter {
	return &Exporter{source: source}
}

// Handler serves Render over HTTP.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics, or "" when metrics are disabled.
func (p *Exporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	w := expoWriter{}
	w.b.Grow(4096)
	for _, def := range internaldefs.CounterDefs {
		w.header(def.Name, def.Help, "counter")
		w.sample(def.Name, "", snapshot.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.Cumulative(snapshot.Histograms[def.ID])
		w.header(def.Name, def.Help, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			w.sample(def.Name+"_bucket", `le="`+le+`"`, cumulative[i])
		}
		w.sample(def.Name+"_count", "", cumulative[len(cumulative)-1])
		// Snapshots carry no sum.
		w.sample(def.Name+"_sum", "", 0)
	}
	w.header(internaldefs.AuditDropped.Name, internaldefs.AuditDropped.Help, "counter")
	w.sample(internaldefs.AuditDropped.Name, "", dropped)

	return w.b.String()
}

type expoWriter struct {
	b strings.Builder
}

func (w *expoWriter) header(name, help, kind string) {
	w.b.WriteString("# HELP ")
	w.b.WriteString(name)
	w.b.WriteByte(' ')
	w.b.WriteString(escapeHelp(help))
	w.b.WriteString("\n# TYPE ")
	w.b.WriteString(name)
	w.b.WriteByte(' ')
	w.b.WriteString(kind)
	w.b.WriteByte('\n')
}

func (w *expoWriter) sample(name, labels string, value uint64) {
	w.b.WriteString(name)
	if labels != "" {
		w.b.WriteByte('{')
		w.b.WriteString(labels)
		w.b.WriteByte('}')
	}
	w.b.WriteByte(' ')
	w.b.WriteString(strconv.FormatUint(value, 10))
	w.b.WriteByte('\n')
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
