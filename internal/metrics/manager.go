// File: internal/metrics/manager.go
package metrics

import (
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/degenlabs/rollfeed/pkg/utils"
)

// Manager aggregates the rollfeed Prometheus metrics with process-level
// bookkeeping. Pipeline components record through GetPrometheusMetrics;
// the HTTP server drives the periodic updates.
type Manager struct {
	prometheus *PrometheusMetrics
	logger     *logrus.Entry
	startTime  time.Time
}

// NewManager creates a new metrics manager
func NewManager() *Manager {
	return &Manager{
		prometheus: NewPrometheusMetrics(),
		logger:     utils.WithComponent("metrics"),
		startTime:  time.Now(),
	}
}

// GetPrometheusMetrics returns the Prometheus metrics instance
func (m *Manager) GetPrometheusMetrics() *PrometheusMetrics {
	return m.prometheus
}

// Uptime returns how long the process has been running
func (m *Manager) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// UpdateSystemMetrics refreshes the memory, goroutine and uptime gauges
func (m *Manager) UpdateSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.prometheus.UpdateMemoryUsage(memStats.Alloc)
	m.prometheus.UpdateGoroutineCount(runtime.NumGoroutine())
	m.prometheus.UpdateApplicationUptime(m.startTime)
}

// ObserveFeed refreshes the feed size gauge and the health of the two
// components the feed depends on. One call covers a scrape-ready snapshot.
func (m *Manager) ObserveFeed(size int, trackerRunning, connected bool) {
	m.prometheus.UpdateFeedSize(size)
	m.prometheus.UpdateComponentHealth("tracker", trackerRunning)
	m.prometheus.UpdateComponentHealth("connection", connected)
}
