// Package metrics provides the centralized Prometheus metrics reference for
// idremap. All metrics are defined in the package that owns them (client,
// remap) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and the registry handle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by idremap.
// All metrics are automatically registered via promauto in their respective
// packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - idremap_requests_total{status} (Counter): Requests by HTTP status
//     (or "network_error")
//   - idremap_request_duration_seconds (Histogram): Request duration
//   - idremap_errors_total{class} (Counter): Failed attempts by class
//     (network, server, rate_limit, client, malformed)
//
// Retry Metrics (pkg/client):
//   - idremap_retries_total (Counter): Retry attempts
//   - idremap_retry_exhausted_total (Counter): Chunks that exhausted retries
//
// Run Metrics (pkg/remap):
//   - idremap_chunks_total{outcome} (Counter): Chunks by outcome
//     (ok, exhausted, restored)
//   - idremap_rows_mapped_total (Counter): Rows aggregated from successful
//     chunks
//
// Example Prometheus Queries:
//
//   # Attempt failure rate
//   rate(idremap_errors_total[5m]) / rate(idremap_requests_total[5m])
//
//   # Chunks lost to exhaustion
//   sum(idremap_chunks_total{outcome="exhausted"})
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(idremap_request_duration_seconds_bucket[5m]))
