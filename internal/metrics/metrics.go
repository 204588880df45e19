package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics of the service
// ⭐ SSOT: 메트릭 정의는 여기서만
// nil Registry의 Record* 메서드는 아무 것도 하지 않음
type Registry struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	RateLimited  prometheus.Counter

	// Engine
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	PlanActions       *prometheus.CounterVec
	PlanWarnings      prometheus.Counter

	// Cache / catalog
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	CatalogReloads *prometheus.CounterVec
}

// NewRegistry creates a registry with all copilot metrics registered
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copilot_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"method", "route"},
		),

		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "copilot_http_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),

		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_engine_operations_total",
				Help: "Total number of engine operations by result",
			},
			[]string{"operation", "result"},
		),

		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copilot_engine_operation_duration_seconds",
				Help:    "Duration of engine operations in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"operation"},
		),

		PlanActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_plan_actions_total",
				Help: "Total number of emitted rebalance actions by direction",
			},
			[]string{"action"},
		),

		PlanWarnings: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "copilot_plan_warnings_total",
				Help: "Total number of plan warnings emitted",
			},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_cache_hits_total",
				Help: "Total number of cache hits by cache type",
			},
			[]string{"cache_type"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_cache_misses_total",
				Help: "Total number of cache misses by cache type",
			},
			[]string{"cache_type"},
		),

		CatalogReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_catalog_reloads_total",
				Help: "Total number of catalog refresh attempts by result",
			},
			[]string{"result"},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.HTTPRequests,
		r.HTTPDuration,
		r.RateLimited,
		r.Operations,
		r.OperationDuration,
		r.PlanActions,
		r.PlanWarnings,
		r.CacheHits,
		r.CacheMisses,
		r.CatalogReloads,
	)

	return r
}

// Handler returns the /metrics HTTP handler
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry (tests)
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordHTTP records one served request
func (r *Registry) RecordHTTP(method, route, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(method, route, status).Inc()
	r.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRateLimited records a rejected request
func (r *Registry) RecordRateLimited() {
	if r == nil {
		return
	}
	r.RateLimited.Inc()
}

// RecordOperation records one engine operation
func (r *Registry) RecordOperation(operation string, err error, duration time.Duration) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.Operations.WithLabelValues(operation, result).Inc()
	r.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordPlan records the size of an emitted plan
func (r *Registry) RecordPlan(buys, sells, warnings int) {
	if r == nil {
		return
	}
	r.PlanActions.WithLabelValues("BUY").Add(float64(buys))
	r.PlanActions.WithLabelValues("SELL").Add(float64(sells))
	r.PlanWarnings.Add(float64(warnings))
}

// RecordCache records a cache lookup
func (r *Registry) RecordCache(cacheType string, hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.CacheHits.WithLabelValues(cacheType).Inc()
		return
	}
	r.CacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordCatalogReload records a catalog refresh attempt
// result: "reloaded", "unchanged", "error"
func (r *Registry) RecordCatalogReload(result string) {
	if r == nil {
		return
	}
	r.CatalogReloads.WithLabelValues(result).Inc()
}
