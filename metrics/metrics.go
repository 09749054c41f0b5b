// Package metrics holds the Prometheus collectors of the catalog server.
// Collectors are package-level and only exported once Register is called,
// so components can record unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "apicatalog_build_info",
			Help: "Build information for the catalog server",
		},
		[]string{"version"},
	)

	sessionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "apicatalog_sessions_open",
			Help: "Number of SSE sessions currently open on this node",
		},
	)

	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apicatalog_sessions_total",
			Help: "Sessions opened and closed, by event",
		},
		[]string{"event"},
	)

	rpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apicatalog_rpc_requests_total",
			Help: "JSON-RPC requests dispatched, by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	rpcDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apicatalog_rpc_request_duration_seconds",
			Help:    "Time spent dispatching JSON-RPC requests",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"method"},
	)

	catalogBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apicatalog_catalog_builds_total",
			Help: "Catalog builds, by outcome",
		},
		[]string{"outcome"},
	)

	catalogEndpoints = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "apicatalog_catalog_endpoints",
			Help: "Number of endpoints in the published catalog",
		},
	)

	catalogBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "apicatalog_catalog_build_duration_seconds",
			Help:    "Time spent building the catalog",
			Buckets: prometheus.DefBuckets,
		},
	)

	forwardedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apicatalog_forwarded_messages_total",
			Help: "Messages routed to a session owned by another node, by direction",
		},
		[]string{"direction"},
	)
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Register registers every collector with r.
func Register(r prometheus.Registerer) {
	r.MustRegister(
		buildInfo,
		sessionsOpen,
		sessionsTotal,
		rpcRequests,
		rpcDuration,
		catalogBuilds,
		catalogEndpoints,
		catalogBuildDuration,
		forwardedMessages,
	)
}

// SetBuildInfo records the running version.
func SetBuildInfo(version string) {
	buildInfo.WithLabelValues(version).Set(1)
}

// SessionOpened records a new SSE session.
func SessionOpened() {
	sessionsOpen.Inc()
	sessionsTotal.WithLabelValues("opened").Inc()
}

// SessionClosed records the end of an SSE session.
func SessionClosed() {
	sessionsOpen.Dec()
	sessionsTotal.WithLabelValues("closed").Inc()
}

// ObserveRPC records one dispatched request.
func ObserveRPC(method string, ok bool, d time.Duration) {
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeError
	}
	rpcRequests.WithLabelValues(method, outcome).Inc()
	rpcDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveCatalogBuild records a catalog build. endpoints is ignored when
// err is non-nil since the previous catalog stays published.
func ObserveCatalogBuild(endpoints int, d time.Duration, err error) {
	catalogBuildDuration.Observe(d.Seconds())
	if err != nil {
		catalogBuilds.WithLabelValues(OutcomeError).Inc()
		return
	}
	catalogBuilds.WithLabelValues(OutcomeOK).Inc()
	catalogEndpoints.Set(float64(endpoints))
}

// MessageForwarded records a message published to another node ("out") or
// received from one ("in").
func MessageForwarded(direction string) {
	forwardedMessages.WithLabelValues(direction).Inc()
}
