package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jkfsjkfs/proyecto-rutas/internal/routing"
)

// Metrics holds every collector the service exports
type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Optimizations        *prometheus.CounterVec
	OptimizationDuration *prometheus.HistogramVec
	OptimizationStops    prometheus.Histogram

	PlanCache *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rutas_http_requests_total",
			Help: "Total number of HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),

		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rutas_http_request_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		Optimizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rutas_optimizations_total",
			Help: "Total number of route optimizations by strategy and outcome.",
		}, []string{"strategy", "reachable"}),

		OptimizationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rutas_optimization_seconds",
			Help:    "Time spent computing a route optimization.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"strategy"}),

		OptimizationStops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rutas_optimization_waypoints",
			Help:    "Number of waypoints per optimization.",
			Buckets: prometheus.LinearBuckets(2, 2, 10),
		}),

		PlanCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rutas_plan_cache_total",
			Help: "Route plan cache lookups by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.Optimizations,
		m.OptimizationDuration,
		m.OptimizationStops,
		m.PlanCache,
	)
	return m
}

// ObserveOptimization records one finished optimization
func (m *Metrics) ObserveOptimization(strategy routing.Strategy, waypoints int, reachable bool, elapsed time.Duration) {
	m.Optimizations.WithLabelValues(string(strategy), strconv.FormatBool(reachable)).Inc()
	m.OptimizationDuration.WithLabelValues(string(strategy)).Observe(elapsed.Seconds())
	m.OptimizationStops.Observe(float64(waypoints))
}

func (m *Metrics) CacheHit()  { m.PlanCache.WithLabelValues("hit").Inc() }
func (m *Metrics) CacheMiss() { m.PlanCache.WithLabelValues("miss").Inc() }

// HTTPMiddleware counts requests by their chi route pattern so path
// parameters do not explode label cardinality
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
