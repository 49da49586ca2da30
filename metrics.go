package storageless

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter or histogram.
type MetricID uint16

const (
	// MetricSessionLoaded counts requests whose cookie decoded into a session.
	MetricSessionLoaded MetricID = iota
	// MetricSessionAbsent counts requests without a session cookie.
	MetricSessionAbsent
	// MetricTokenMalformed counts cookies that were not a well-formed JWT.
	MetricTokenMalformed
	// MetricTokenExpired counts tokens rejected by claim validation.
	MetricTokenExpired
	// MetricTokenSignatureInvalid counts tokens whose signature did not verify.
	MetricTokenSignatureInvalid
	// MetricCookieIssued counts live session cookies written.
	MetricCookieIssued
	// MetricCookieCleared counts clearing cookies written for empty sessions.
	MetricCookieCleared
	// MetricEncodeFailure counts sessions that could not be signed.
	MetricEncodeFailure
	// MetricRegenerated counts Session.Regenerate calls.
	MetricRegenerated
	// MetricDecodeLatency is the histogram of InitializeSessionFromRequest latency.
	MetricDecodeLatency
	// MetricEncodeLatency is the histogram of PersistSession latency.
	MetricEncodeLatency
	metricIDCount
)

// latencyBounds are the inclusive upper bounds of every histogram bucket but
// the last, which is +Inf.
var latencyBounds = [...]time.Duration{
	100 * time.Microsecond,
	250 * time.Microsecond,
	500 * time.Microsecond,
	time.Millisecond,
	2500 * time.Microsecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
}

const (
	histBucketCount = len(latencyBounds) + 1
	cacheLineSize   = 64
)

type paddedCounter struct {
	atomic.Uint64
	_ [cacheLineSize - 8]byte
}

type latencyHistogram [histBucketCount]atomic.Uint64

// Metrics holds lock-free counters and latency histograms. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	decode        latencyHistogram
	encode        latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of all metrics. Histogram slices are
// non-cumulative bucket counts.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics builds a Metrics from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool { return m != nil && m.enabled }

// LatencyEnabled reports whether latency histograms are recorded.
func (m *Metrics) LatencyEnabled() bool { return m != nil && m.enableLatency }

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount || m.histogram(id) != nil {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d in histogram id. Counter IDs are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency {
		return
	}
	if h := m.histogram(id); h != nil {
		h[bucketIndex(d)].Add(1)
	}
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies every counter and, when enabled, both latency histograms.
// A disabled Metrics returns empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if m == nil || !m.enabled {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if m.histogram(id) == nil {
			s.Counters[id] = m.counters[id].Load()
		}
	}
	if m.enableLatency {
		for _, id := range []MetricID{MetricDecodeLatency, MetricEncodeLatency} {
			h := m.histogram(id)
			buckets := make([]uint64, histBucketCount)
			for i := range buckets {
				buckets[i] = h[i].Load()
			}
			s.Histograms[id] = buckets
		}
	}
	return s
}

func (m *Metrics) histogram(id MetricID) *latencyHistogram {
	switch id {
	case MetricDecodeLatency:
		return &m.decode
	case MetricEncodeLatency:
		return &m.encode
	default:
		return nil
	}
}

func bucketIndex(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
