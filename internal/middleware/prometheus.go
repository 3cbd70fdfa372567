package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"telecare-backend/pkg/metrics"
)

// Prometheus instruments every request with duration, status and
// in-flight gauges. The route template (c.FullPath) keeps label
// cardinality bounded.
func Prometheus(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.IncrementHTTPRequestsInFlight()
		start := time.Now()

		c.Next()

		m.DecrementHTTPRequestsInFlight()
		m.RecordHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// MetricsHandler serves the scrape endpoint for the app's private
// registry.
func MetricsHandler(m *metrics.Metrics) gin.HandlerFunc {
	h := promhttp.HandlerFor(m.GetRegistry(), promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
