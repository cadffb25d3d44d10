package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricPrefix = "solarbudget_"

	resultSuccess = "success"
	resultError   = "error"
)

// Reconcile sources, in fallback order.
const (
	SourceCache      = "cache"
	SourceUpstream   = "upstream"
	SourceStaleCache = "stale_cache"
)

var (
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: metricPrefix + "upstream_requests_total",
		Help: "Upstream fetches by series and result",
	}, []string{"series", "result"})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricPrefix + "upstream_latency_seconds",
		Help:    "Upstream fetch latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"series"})

	RecoveredErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: metricPrefix + "recovered_errors_total",
		Help: "Errors recovered by falling back, by series and kind",
	}, []string{"series", "kind"})

	DroppedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: metricPrefix + "dropped_records_total",
		Help: "Upstream or cached records dropped as malformed",
	}, []string{"series"})

	SnapshotWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: metricPrefix + "snapshot_writes_total",
		Help: "Snapshot writes by series and result",
	}, []string{"series", "result"})

	InvalidSnapshots = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: metricPrefix + "invalid_snapshots_total",
		Help: "Snapshots flagged invalid during validation",
	}, []string{"series"})

	Served = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: metricPrefix + "served_total",
		Help: "Series reconciliations by the source that satisfied them",
	}, []string{"series", "source"})

	Unavailable = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: metricPrefix + "unavailable_total",
		Help: "Reconciliations that found no valid data from any source",
	}, []string{"series"})
)

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

// ObserveFetch records one upstream call.
func ObserveFetch(series string, start time.Time, err error) {
	UpstreamRequests.WithLabelValues(series, result(err)).Inc()
	UpstreamLatency.WithLabelValues(series).Observe(time.Since(start).Seconds())
}

// ObserveWrite records one snapshot write.
func ObserveWrite(series string, err error) {
	SnapshotWrites.WithLabelValues(series, result(err)).Inc()
}
