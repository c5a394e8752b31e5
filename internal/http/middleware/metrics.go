package middleware

// Prometheus instrumentation for console traffic. Requests are labelled by
// the Route classification rather than the URL, so series stay bounded by
// (kind x operation) and unmatched requests collapse into one "unmatched"
// operation.

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_http_requests_total",
			Help: "HTTP requests by entity kind, console operation and status.",
		},
		[]string{"method", "kind", "op", "status"},
	)

	// Status is left out of the histograms to keep them small.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "console_http_request_duration_seconds",
			Help:    "HTTP request duration by entity kind and console operation.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "op"},
	)

	httpInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "console_http_requests_inflight",
			Help: "HTTP requests being served, by traffic class.",
		},
		[]string{"class"},
	)

	// List pages dominate the upper buckets.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "console_http_response_size_bytes",
			Help: "HTTP response size by entity kind and console operation.",
			Buckets: []float64{
				200, 500, 1 << 10, 2 << 10, 5 << 10,
				10 << 10, 25 << 10, 50 << 10,
				100 << 10, 250 << 10, 500 << 10,
				1 << 20, 2 << 20,
			},
		},
		[]string{"kind", "op"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize)
}

// Metrics records request counts, latencies, in-flight requests and response
// sizes. It reads the classification stored by Routes.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		route := RouteOf(c)
		inflight := httpInflight.WithLabelValues(route.Class())
		inflight.Inc()
		defer inflight.Dec()

		c.Next()

		kind := route.KindLabel()
		httpReqs.WithLabelValues(c.Request.Method, kind, route.Op, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(kind, route.Op).Observe(time.Since(start).Seconds())
		// Size is -1 when nothing was written (e.g. 204).
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(kind, route.Op).Observe(float64(size))
		}
	}
}
