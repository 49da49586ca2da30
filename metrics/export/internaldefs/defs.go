package internaldefs

import (
	storageless "github.com/MrEthical07/storageless"
)

// CounterDef names one counter for every exporter.
type CounterDef struct {
	ID   storageless.MetricID
	Name string
	Help string
}

// HistogramDef names one latency histogram for every exporter.
type HistogramDef struct {
	ID   storageless.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "slsession_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

var CounterDefs = []CounterDef{
	{ID: storageless.MetricSessionLoaded, Name: "slsession_loaded_total", Help: "Requests whose session cookie decoded successfully."},
	{ID: storageless.MetricSessionAbsent, Name: "slsession_absent_total", Help: "Requests without a session cookie."},
	{ID: storageless.MetricTokenMalformed, Name: "slsession_token_malformed_total", Help: "Session cookies that were not a well-formed token."},
	{ID: storageless.MetricTokenExpired, Name: "slsession_token_expired_total", Help: "Session tokens rejected by claim validation."},
	{ID: storageless.MetricTokenSignatureInvalid, Name: "slsession_token_signature_invalid_total", Help: "Session tokens whose signature did not verify."},
	{ID: storageless.MetricCookieIssued, Name: "slsession_cookie_issued_total", Help: "Session cookies issued."},
	{ID: storageless.MetricCookieCleared, Name: "slsession_cookie_cleared_total", Help: "Clearing cookies issued for empty sessions."},
	{ID: storageless.MetricEncodeFailure, Name: "slsession_encode_failure_total", Help: "Sessions that could not be signed."},
	{ID: storageless.MetricRegenerated, Name: "slsession_regenerated_total", Help: "Session regenerations."},
}

var HistogramDefs = []HistogramDef{
	{ID: storageless.MetricDecodeLatency, Name: "slsession_decode_latency_seconds", Help: "Session decode latency histogram."},
	{ID: storageless.MetricEncodeLatency, Name: "slsession_encode_latency_seconds", Help: "Session encode latency histogram."},
}

// HistogramBounds are the bucket upper bounds in seconds, matching the core
// Metrics bucketing.
var HistogramBounds = []string{
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.005",
	"0.01",
	"+Inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into Prometheus-style cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
