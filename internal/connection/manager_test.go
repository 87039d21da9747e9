// File: internal/connection/manager_test.go
package connection

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/degenlabs/rollfeed/internal/config"
	"github.com/degenlabs/rollfeed/internal/metrics"
)

// Shared across tests: the Prometheus metrics register against the default
// registry, so a second NewManager in the same process would panic.
var testMetrics = metrics.NewManager()

// unreachableURL points at a port nothing listens on; the HTTP dial is lazy,
// so failures surface at the health check.
const unreachableURL = "http://127.0.0.1:1"

func unreachableNodeConfig() *config.NodeConfig {
	return &config.NodeConfig{
		HTTPURL:        unreachableURL,
		NetworkID:      1,
		RequestTimeout: time.Second,
		RetryAttempts:  1,
		RetryDelay:     time.Millisecond,
	}
}

func TestConnectRecordsConnectionErrors(t *testing.T) {
	cm := NewConnectionManager(unreachableNodeConfig())
	cm.SetMetricsManager(testMetrics)
	defer cm.Close()

	_, err := cm.GetClientWithContext(context.Background())
	require.Error(t, err, "connecting to a dead endpoint must fail")

	pm := testMetrics.GetPrometheusMetrics()

	healthFailed := testutil.ToFloat64(
		pm.ConnectionErrorsTotal.WithLabelValues(unreachableURL, "health_check_failed"))
	assert.GreaterOrEqual(t, healthFailed, 1.0, "health check failure must be counted")

	exhausted := testutil.ToFloat64(
		pm.ConnectionErrorsTotal.WithLabelValues(unreachableURL, "exhausted"))
	assert.GreaterOrEqual(t, exhausted, 1.0, "exhausted attempts must be counted")
}

func TestGetSubscribeClientRequiresWSEndpoint(t *testing.T) {
	cm := NewConnectionManager(unreachableNodeConfig())
	defer cm.Close()

	_, err := cm.GetSubscribeClient(context.Background())
	require.Error(t, err, "no ws_url configured")
	assert.False(t, cm.SupportsSubscriptions())
}

func TestStatsConcurrentWithRequests(t *testing.T) {
	cm := NewConnectionManager(unreachableNodeConfig())
	defer cm.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cm.GetClientWithContext(ctx)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cm.Stats()
			_ = cm.IsConnected()
		}()
	}
	wg.Wait()

	stats := cm.Stats()
	assert.Equal(t, unreachableURL, stats.CurrentURL)
}
