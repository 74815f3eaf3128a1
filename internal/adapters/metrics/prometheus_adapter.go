package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "televault_cache_reads_total",
			Help: "Cache probes by category and classification (fresh/stale/absent).",
		},
		[]string{"category", "result"},
	)

	CacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "televault_cache_evictions_total",
			Help: "Hard-expired rows evicted on read, by category.",
		},
		[]string{"category"},
	)

	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "televault_upstream_requests_total",
			Help: "Upstream API requests by method and status class.",
		},
		[]string{"method", "status"},
	)

	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "televault_token_refreshes_total",
			Help: "Token refresh attempts by outcome (success/failure/coalesced).",
		},
		[]string{"outcome"},
	)

	RevalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "televault_revalidations_total",
			Help: "Background revalidation tasks by outcome (success/failure/dropped/deduped).",
		},
		[]string{"outcome"},
	)

	RevalidationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "televault_revalidation_queue_depth",
			Help: "Number of revalidation tasks waiting for a worker.",
		},
	)

	ReconcilerFetchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "televault_reconciler_fetches_total",
			Help: "Upstream range fetches issued by the calendar reconciler (one per run).",
		},
	)
)

// IncrementCacheRead records one cache probe outcome.
func IncrementCacheRead(category, result string) {
	CacheReadsTotal.WithLabelValues(category, result).Inc()
}

// IncrementCacheEviction records one expired-row eviction.
func IncrementCacheEviction(category string) {
	CacheEvictionsTotal.WithLabelValues(category).Inc()
}

// IncrementUpstreamRequest records one upstream call.
func IncrementUpstreamRequest(method, status string) {
	UpstreamRequestsTotal.WithLabelValues(method, status).Inc()
}

// IncrementTokenRefresh records one refresh attempt outcome.
func IncrementTokenRefresh(outcome string) {
	TokenRefreshesTotal.WithLabelValues(outcome).Inc()
}

// IncrementRevalidation records one background revalidation outcome.
func IncrementRevalidation(outcome string) {
	RevalidationsTotal.WithLabelValues(outcome).Inc()
}

// IncrementReconcilerFetch records one per-run reconciler fetch.
func IncrementReconcilerFetch() {
	ReconcilerFetchesTotal.Inc()
}
