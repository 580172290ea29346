package httpapi

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks request latency by method, path, status.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "path", "status"},
	)

	// OrdersTotal counts commands by action and outcome.
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchbook_orders_total",
			Help: "Total number of order commands by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	// FillsTotal counts individual fills.
	FillsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchbook_fills_total",
			Help: "Total number of fills",
		},
	)

	// FilledShares accumulates traded volume.
	FilledShares = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchbook_filled_shares_total",
			Help: "Total traded volume in shares",
		},
	)

	// BookDepth tracks the number of price levels per side.
	BookDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "matchbook_book_depth_levels",
			Help: "Current number of price levels",
		},
		[]string{"side"},
	)

	// EngineSeq tracks the last applied command sequence.
	EngineSeq = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchbook_engine_seq",
			Help: "Last applied command sequence",
		},
	)
)

// PrometheusMiddleware records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
