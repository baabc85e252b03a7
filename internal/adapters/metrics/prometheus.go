// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the MetricsCollector port using Prometheus.
type Collector struct {
	queryCounter        *prometheus.CounterVec
	queryDuration       *prometheus.HistogramVec
	granulesIndexed     *prometheus.GaugeVec
	productsTracked     prometheus.Gauge
	providerOperations  *prometheus.CounterVec
	providerDuration    *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector creates a new Prometheus metrics collector.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "pansat"
	}

	return &Collector{
		queryCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of granule queries",
			},
			[]string{"product", "status"},
		),

		queryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Query duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"product"},
		),

		granulesIndexed: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "granules_indexed",
				Help:      "Number of granules indexed per product",
			},
			[]string{"product"},
		),

		productsTracked: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "products_tracked",
				Help:      "Number of products with at least one indexed granule",
			},
		),

		providerOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_operations_total",
				Help:      "Total number of provider operations",
			},
			[]string{"provider", "operation", "status"},
		),

		providerDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_duration_seconds",
				Help:      "Provider operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider", "operation"},
		),

		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// IncQueryCount increments the query counter.
func (c *Collector) IncQueryCount(product string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	c.queryCounter.WithLabelValues(product, status).Inc()
}

// ObserveQueryDuration records query duration.
func (c *Collector) ObserveQueryDuration(product string, duration time.Duration) {
	c.queryDuration.WithLabelValues(product).Observe(duration.Seconds())
}

// SetGranulesIndexed sets the number of granules indexed for a product.
func (c *Collector) SetGranulesIndexed(product string, count int) {
	c.granulesIndexed.WithLabelValues(product).Set(float64(count))
}

// SetProductsTracked sets the number of tracked products.
func (c *Collector) SetProductsTracked(count int) {
	c.productsTracked.Set(float64(count))
}

// IncProviderOperations increments the provider operation counter.
func (c *Collector) IncProviderOperations(provider, operation string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	c.providerOperations.WithLabelValues(provider, operation, status).Inc()
}

// ObserveProviderDuration records provider operation duration.
func (c *Collector) ObserveProviderDuration(provider, operation string, duration time.Duration) {
	c.providerDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// IncHTTPRequests increments the HTTP request counter.
func (c *Collector) IncHTTPRequests(method, path, status string) {
	c.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// ObserveHTTPDuration records HTTP request duration.
func (c *Collector) ObserveHTTPDuration(method, path string, duration time.Duration) {
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns HTTP middleware for metrics collection.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		path := normalizePath(r.URL.Path)
		status := statusToString(wrapped.statusCode)

		c.IncHTTPRequests(r.Method, path, status)
		c.ObserveHTTPDuration(r.Method, path, duration)
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes the URL path for metrics.
func normalizePath(path string) string {
	switch {
	case len(path) > 20:
		return path[:20] + "..."
	default:
		return path
	}
}

// statusToString converts HTTP status code to string category.
func statusToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
