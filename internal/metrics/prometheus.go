package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for rollfeed
type PrometheusMetrics struct {
	// Roll ingestion metrics
	RollsIngestedTotal *prometheus.CounterVec
	RollsDroppedTotal  *prometheus.CounterVec
	FeedSize           prometheus.Gauge

	// Backfill metrics
	ChunksScannedTotal *prometheus.CounterVec
	BackfillDuration   *prometheus.HistogramVec

	// Subscription metrics
	SubscriptionReconnectsTotal *prometheus.CounterVec

	// Connection metrics
	ConnectionErrorsTotal *prometheus.CounterVec
	LatestChainBlock      prometheus.Gauge

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Notification metrics
	WebhooksSentTotal   *prometheus.CounterVec
	WebhooksFailedTotal *prometheus.CounterVec

	// Application health metrics
	ApplicationUptime prometheus.Gauge
	ComponentHealth   *prometheus.GaugeVec
	MemoryUsage       prometheus.Gauge
	GoroutineCount    prometheus.Gauge
}

// NewPrometheusMetrics creates and registers all Prometheus metrics
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		RollsIngestedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollfeed_rolls_ingested_total",
				Help: "Total number of rolls added to the feed",
			},
			[]string{"game", "source"},
		),

		RollsDroppedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollfeed_rolls_dropped_total",
				Help: "Total number of logs dropped before entering the feed",
			},
			[]string{"reason"},
		),

		FeedSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rollfeed_feed_size",
				Help: "Current number of rolls held in the feed",
			},
		),

		ChunksScannedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollfeed_chunks_scanned_total",
				Help: "Total number of block-range chunks scanned during backfill",
			},
			[]string{"game", "status"},
		),

		BackfillDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rollfeed_backfill_duration_seconds",
				Help:    "Time spent backfilling historical rolls per game",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"game"},
		),

		SubscriptionReconnectsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollfeed_subscription_reconnects_total",
				Help: "Total number of live log subscription reconnects",
			},
			[]string{"game"},
		),

		ConnectionErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollfeed_connection_errors_total",
				Help: "Total number of connection errors to chain nodes",
			},
			[]string{"endpoint", "error_type"},
		),

		LatestChainBlock: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rollfeed_latest_chain_block",
				Help: "Latest chain block number observed",
			},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollfeed_http_requests_total",
				Help: "Total number of HTTP requests received",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rollfeed_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		WebhooksSentTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollfeed_webhooks_sent_total",
				Help: "Total number of roll webhooks delivered",
			},
			[]string{"game"},
		),

		WebhooksFailedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollfeed_webhooks_failed_total",
				Help: "Total number of roll webhooks that failed delivery",
			},
			[]string{"game"},
		),

		ApplicationUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rollfeed_application_uptime_seconds",
				Help: "Application uptime in seconds",
			},
		),

		ComponentHealth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rollfeed_component_health",
				Help: "Health status of application components (1=healthy, 0=unhealthy)",
			},
			[]string{"component"},
		),

		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rollfeed_memory_usage_bytes",
				Help: "Current memory usage in bytes",
			},
		),

		GoroutineCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rollfeed_goroutines",
				Help: "Number of running goroutines",
			},
		),
	}
}

// RecordRollIngested records a roll added to the feed
func (m *PrometheusMetrics) RecordRollIngested(game, source string) {
	m.RollsIngestedTotal.WithLabelValues(game, source).Inc()
}

// RecordRollDropped records a log dropped before entering the feed
func (m *PrometheusMetrics) RecordRollDropped(reason string) {
	m.RollsDroppedTotal.WithLabelValues(reason).Inc()
}

// UpdateFeedSize updates the feed size gauge
func (m *PrometheusMetrics) UpdateFeedSize(size int) {
	m.FeedSize.Set(float64(size))
}

// RecordChunkScanned records a scanned backfill chunk
func (m *PrometheusMetrics) RecordChunkScanned(game, status string) {
	m.ChunksScannedTotal.WithLabelValues(game, status).Inc()
}

// RecordBackfillDuration records the time taken to backfill one game
func (m *PrometheusMetrics) RecordBackfillDuration(game string, duration time.Duration) {
	m.BackfillDuration.WithLabelValues(game).Observe(duration.Seconds())
}

// RecordSubscriptionReconnect records a subscription reconnect
func (m *PrometheusMetrics) RecordSubscriptionReconnect(game string) {
	m.SubscriptionReconnectsTotal.WithLabelValues(game).Inc()
}

// RecordConnectionError records a connection error
func (m *PrometheusMetrics) RecordConnectionError(endpoint, errorType string) {
	m.ConnectionErrorsTotal.WithLabelValues(endpoint, errorType).Inc()
}

// UpdateLatestChainBlock updates the latest chain block gauge
func (m *PrometheusMetrics) UpdateLatestChainBlock(blockNumber uint64) {
	m.LatestChainBlock.Set(float64(blockNumber))
}

// RecordHTTPRequest records an HTTP request
func (m *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordWebhookSent records a delivered roll webhook
func (m *PrometheusMetrics) RecordWebhookSent(game string) {
	m.WebhooksSentTotal.WithLabelValues(game).Inc()
}

// RecordWebhookFailed records a failed roll webhook
func (m *PrometheusMetrics) RecordWebhookFailed(game string) {
	m.WebhooksFailedTotal.WithLabelValues(game).Inc()
}

// UpdateApplicationUptime updates the application uptime metric
func (m *PrometheusMetrics) UpdateApplicationUptime(startTime time.Time) {
	m.ApplicationUptime.Set(time.Since(startTime).Seconds())
}

// UpdateComponentHealth updates the health status of a component
func (m *PrometheusMetrics) UpdateComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.ComponentHealth.WithLabelValues(component).Set(value)
}

// UpdateMemoryUsage updates the memory usage metric
func (m *PrometheusMetrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}

// UpdateGoroutineCount updates the goroutine count metric
func (m *PrometheusMetrics) UpdateGoroutineCount(count int) {
	m.GoroutineCount.Set(float64(count))
}
