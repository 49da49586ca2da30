package prometheus

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	storageless "github.com/MrEthical07/storageless"
	"github.com/MrEthical07/storageless/metrics/export/internaldefs"
)

// ContentType is the text exposition format version served by Handler.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

type metricsSource interface {
	MetricsSnapshot() storageless.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders session metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates a Prometheus exporter that reads from p.
func NewPrometheusExporter(p *storageless.Persistence) *PrometheusExporter {
	return &PrometheusExporter{source: p}
}

// NewPrometheusExporterFromSource creates a Prometheus exporter from any
// snapshot source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves the current snapshot. Disabled metrics produce an empty 200.
func (e *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var buf bytes.Buffer
		if _, err := e.WriteTo(&buf); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", ContentType)
		_, _ = buf.WriteTo(w)
	})
}

// Render returns WriteTo's output as a string.
func (e *PrometheusExporter) Render() string {
	var b strings.Builder
	_, _ = e.WriteTo(&b)
	return b.String()
}

// WriteTo writes one exposition block per metric family. Nothing is written
// when metrics are disabled and no audit event was dropped.
func (e *PrometheusExporter) WriteTo(w io.Writer) (int64, error) {
	if e == nil || e.source == nil {
		return 0, nil
	}

	snapshot := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return 0, nil
	}

	ew := &expositionWriter{w: w}
	for _, def := range internaldefs.CounterDefs {
		ew.counter(def.Name, def.Help, snapshot.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		ew.histogram(def.Name, def.Help, snapshot.Histograms[def.ID])
	}
	ew.counter(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, dropped)

	return ew.n, ew.err
}

// expositionWriter accumulates the byte count and stops at the first error.
type expositionWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (ew *expositionWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	n, err := fmt.Fprintf(ew.w, format, args...)
	ew.n += int64(n)
	ew.err = err
}

func (ew *expositionWriter) header(name, help, kind string) {
	ew.printf("# HELP %s %s\n# TYPE %s %s\n", name, escapeHelp(help), name, kind)
}

func (ew *expositionWriter) counter(name, help string, value uint64) {
	ew.header(name, help, "counter")
	ew.printf("%s %d\n", name, value)
}

// histogram writes cumulative buckets. Snapshots carry bucket counts only, so
// _sum is always 0.
func (ew *expositionWriter) histogram(name, help string, raw []uint64) {
	cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))

	ew.header(name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		ew.printf("%s_bucket{le=%q} %d\n", name, le, cumulative[i])
	}
	ew.printf("%s_count %d\n%s_sum 0\n", name, cumulative[len(cumulative)-1], name)
}

func escapeHelp(help string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(help)
}
