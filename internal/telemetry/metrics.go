// Package telemetry provides application-level observability for the audit
// service.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// served by the side-channel HTTP server started in main.go:
//
//	GET http://<host>:<ATR_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is deliberately not part of the Gin router
// so the scrape path stays off the public ingress and skips rate limiting.
//
// # Label Cardinality
//
// HTTP metrics use the Gin route template (e.g. /api/v1/orgs/:org/audit-logs)
// rather than the raw URL so user-supplied path segments such as record
// identifiers cannot create unbounded label cardinality. Domain counters are
// likewise labelled by reference kind or destination name, never by record or
// organization identifier.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%): sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route: histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Audit domain metrics.
//
// AuditLogsCreatedTotal counts successfully persisted audit records.
//
// ReferenceResolutionFailuresTotal is a CounterVec with label {reference}
// (category, sub_category, action_type) incremented whenever a supplied
// classification reference fails to resolve. A sustained non-zero rate usually
// means a client is caching stale reference-table identifiers.
//
// CrossOrganizationLookupsTotal is a CounterVec with label {resource}
// incremented when a lookup matches an identifier owned by a different
// organization. Callers see an ordinary not-found; this counter is the only
// place the distinction is visible. A spike is a probing signal worth an
// alert:
//   - increase(cross_organization_lookups_total[15m]) > 10
var (
	AuditLogsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_logs_created_total",
			Help: "Total number of audit log records successfully created.",
		},
	)

	ReferenceResolutionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reference_resolution_failures_total",
			Help: "Total number of supplied classification references that failed to resolve, by reference kind.",
		},
		[]string{"reference"},
	)

	CrossOrganizationLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cross_organization_lookups_total",
			Help: "Total number of lookups that matched an entity owned by a different organization, by resource.",
		},
		[]string{"resource"},
	)
)

// Export and retention metrics — recorded by the shipper and the retention
// background job.
//
// Example PromQL queries:
//   - Ship error rate by destination:  rate(audit_ship_errors_total[1h])
//   - Alert expression:                increase(audit_ship_errors_total[30m]) > 3
var (
	AuditLogsShippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_logs_shipped_total",
			Help: "Total number of audit records shipped to an external destination, by destination type.",
		},
		[]string{"destination"},
	)

	AuditShipErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_ship_errors_total",
			Help: "Total number of failed audit record shipments, by destination type.",
		},
		[]string{"destination"},
	)

	RetentionPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retention_purged_total",
			Help: "Total number of soft-deleted audit records physically removed by the retention job.",
		},
	)
)

// DBOpenConnections is a Gauge tracking the number of open connections held by
// the sql.DB pool. It is sampled every 30 seconds by StartDBStatsCollector
// rather than per-request to avoid the overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB
// connection pool statistics every 30 seconds and updates DBOpenConnections.
// The goroutine exits when the database becomes unreachable, which happens
// naturally at shutdown once db.Close() runs.
//
// Call this once, immediately after db.Connect() succeeds in main.go.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
