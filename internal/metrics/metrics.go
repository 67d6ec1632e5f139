package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_tool_calls_total",
			Help: "Total number of tool calls by outcome kind.",
		},
		[]string{"tool", "kind"},
	)
	ToolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_tool_call_duration_seconds",
			Help:    "Duration of tool calls in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	PurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_purchases_total",
			Help: "Purchase registrations by outcome.",
		},
		[]string{"outcome"},
	)
	UnitsSold = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_units_sold_total",
			Help: "Total product units sold.",
		},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_cache_requests_total",
			Help: "Dashboard cache lookups by result.",
		},
		[]string{"result"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"code", "method", "path"},
	)
	httpRequestsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed.",
		},
	)
)

func init() {
	// The default registry normally carries both already.
	_ = prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	_ = prometheus.Register(collectors.NewGoCollector())
}

// ObserveToolCall records one dispatched tool call. kind is "ok" or the
// error kind.
func ObserveToolCall(tool, kind string, elapsed time.Duration) {
	ToolCallsTotal.WithLabelValues(tool, kind).Inc()
	ToolCallDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// Middleware records request count, latency and in-flight requests. The
// route template is used as the path label so ids do not explode cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()

		defer func() {
			path := c.FullPath()
			if path == "" {
				path = "unmatched"
			}

			httpRequestsTotal.WithLabelValues(strconv.Itoa(c.Writer.Status()), c.Request.Method, path).Inc()
			httpRequestsDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
			httpRequestsInFlight.Dec()
		}()

		c.Next()
	}
}

// Handler serves the Prometheus /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
