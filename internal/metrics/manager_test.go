// File: internal/metrics/manager_test.go
package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// One shared manager: the metrics register against the default registry, so
// a second NewManager in the same process would panic on re-registration.
var testManager = NewManager()

func TestManagerObserveFeed(t *testing.T) {
	pm := testManager.GetPrometheusMetrics()

	testManager.ObserveFeed(7, true, false)

	assert.Equal(t, 7.0, testutil.ToFloat64(pm.FeedSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.ComponentHealth.WithLabelValues("tracker")))
	assert.Equal(t, 0.0, testutil.ToFloat64(pm.ComponentHealth.WithLabelValues("connection")))

	testManager.ObserveFeed(0, false, true)

	assert.Equal(t, 0.0, testutil.ToFloat64(pm.FeedSize))
	assert.Equal(t, 0.0, testutil.ToFloat64(pm.ComponentHealth.WithLabelValues("tracker")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.ComponentHealth.WithLabelValues("connection")))
}

func TestManagerSystemMetrics(t *testing.T) {
	pm := testManager.GetPrometheusMetrics()

	testManager.UpdateSystemMetrics()

	assert.Greater(t, testutil.ToFloat64(pm.GoroutineCount), 0.0)
	assert.Greater(t, testutil.ToFloat64(pm.MemoryUsage), 0.0)

	require.GreaterOrEqual(t, testManager.Uptime(), time.Duration(0))
}
