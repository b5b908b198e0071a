package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reportledger_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reportledger_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	blocksAppendedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reportledger_blocks_appended_total",
		Help: "Total report card blocks appended.",
	})

	integrityChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reportledger_integrity_checks_total",
		Help: "Total chain integrity checks by result.",
	}, []string{"result"})

	storeAuditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reportledger_store_audits_total",
		Help: "Total background store audits by result.",
	}, []string{"result"})

	chainLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reportledger_chain_length",
		Help: "Number of blocks in the chain, genesis included.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		requestsTotal.WithLabelValues(method, path, status).Inc()
		requestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordLedgerAppend records a block append.
func RecordLedgerAppend() {
	blocksAppendedTotal.Inc()
	chainLength.Inc()
}

// RecordIntegrityCheck records a chain verification result.
func RecordIntegrityCheck(valid bool) {
	if valid {
		integrityChecksTotal.WithLabelValues("valid").Inc()
	} else {
		integrityChecksTotal.WithLabelValues("tampered").Inc()
	}
}

// RecordStoreAudit records a background store audit result.
func RecordStoreAudit(healthy bool) {
	if healthy {
		storeAuditsTotal.WithLabelValues("healthy").Inc()
	} else {
		storeAuditsTotal.WithLabelValues("unhealthy").Inc()
	}
}

// SetChainLength sets the chain length gauge.
func SetChainLength(n int) {
	chainLength.Set(float64(n))
}
