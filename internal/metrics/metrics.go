package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RecordsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phonehunt_records_resolved_total",
		Help: "Sub-records that ended with at least one phone number written",
	})

	RecordsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phonehunt_records_skipped_total",
		Help: "Sub-records skipped before any network activity",
	})

	RecordsUnresolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phonehunt_records_unresolved_total",
		Help: "Sub-records searched without a usable match",
	})

	ProxyAcquisitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phonehunt_proxy_acquisitions_total",
		Help: "Successful proxy lease acquisitions",
	})

	ProxyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phonehunt_proxy_failures_total",
		Help: "Failed proxy lease acquisitions",
	})

	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phonehunt_sessions_started_total",
		Help: "Browser sessions launched",
	})

	BatchAborts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phonehunt_batch_aborts_total",
		Help: "Batches abandoned because no proxy lease was available",
	})

	RequestsAllowed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phonehunt_requests_allowed_total",
		Help: "Browser requests the bandwidth policy let through",
	})

	RequestsBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phonehunt_requests_blocked_total",
		Help: "Browser requests the bandwidth policy aborted",
	})

	BatchActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "phonehunt_batch_active",
		Help: "Whether a batch is currently running",
	})

	SessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "phonehunt_session_duration_seconds",
		Help:    "Duration of browser sessions",
		Buckets: prometheus.LinearBuckets(10, 10, 10),
	})
)

func StartMetricsServer(port int) {
	http.Handle("/metrics", promhttp.Handler())
	addr := ":" + strconv.Itoa(port)
	go func() {
		// Metrics are optional; don't take the extractor down with them.
		_ = http.ListenAndServe(addr, nil)
	}()
}
