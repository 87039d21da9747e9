package connection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/degenlabs/rollfeed/internal/config"
	"github.com/degenlabs/rollfeed/internal/metrics"
	"github.com/degenlabs/rollfeed/pkg/utils"
)

// Manager defines the connection manager interface
type Manager interface {
	GetClient() (*ethclient.Client, error)
	GetClientWithContext(ctx context.Context) (*ethclient.Client, error)
	GetSubscribeClient(ctx context.Context) (*ethclient.Client, error)
	ResetSubscribeClient()
	SupportsSubscriptions() bool
	HealthCheck() error
	HealthCheckWithContext(ctx context.Context) error
	GetNetworkID() (uint64, error)
	GetLatestBlockNumber(ctx context.Context) (uint64, error)
	IsConnected() bool
	Close() error
	Stats() ConnectionStats
}

// ConnectionManager implements the Manager interface
type ConnectionManager struct {
	config          *config.NodeConfig
	primaryURL      string
	backupURLs      []string
	currentIndex    int
	client          *ethclient.Client
	wsClient        *ethclient.Client
	mu              sync.RWMutex
	logger          *logrus.Logger
	metricsManager  *metrics.Manager
	stats           ConnectionStats
	lastHealthCheck time.Time
	isHealthy       bool
}

// ConnectionStats holds connection statistics
type ConnectionStats struct {
	TotalRequests   uint64    `json:"total_requests"`
	FailedRequests  uint64    `json:"failed_requests"`
	Reconnects      uint64    `json:"reconnects"`
	CurrentURL      string    `json:"current_url"`
	WSEndpoint      string    `json:"ws_endpoint,omitempty"`
	LastConnectedAt time.Time `json:"last_connected_at"`
	LastHealthCheck time.Time `json:"last_health_check"`
	IsHealthy       bool      `json:"is_healthy"`
	NetworkID       uint64    `json:"network_id"`
	LatestBlock     uint64    `json:"latest_block"`
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(cfg *config.NodeConfig) *ConnectionManager {
	return &ConnectionManager{
		config:       cfg,
		primaryURL:   cfg.HTTPURL,
		backupURLs:   cfg.BackupNodes,
		currentIndex: 0,
		logger:       utils.GetLogger(),
		stats: ConnectionStats{
			CurrentURL: cfg.HTTPURL,
			WSEndpoint: cfg.WSURL,
		},
	}
}

// SetMetricsManager attaches the metrics manager. Must be called before the
// manager serves requests.
func (cm *ConnectionManager) SetMetricsManager(m *metrics.Manager) {
	cm.metricsManager = m
}

// recordConnectionError bumps the connection error counter. Safe to call
// with cm.mu held.
func (cm *ConnectionManager) recordConnectionError(endpoint, errorType string) {
	if cm.metricsManager != nil {
		cm.metricsManager.GetPrometheusMetrics().RecordConnectionError(endpoint, errorType)
	}
}

// GetClient returns the current client connection
func (cm *ConnectionManager) GetClient() (*ethclient.Client, error) {
	return cm.GetClientWithContext(context.Background())
}

// GetClientWithContext returns the current client with context
func (cm *ConnectionManager) GetClientWithContext(ctx context.Context) (*ethclient.Client, error) {
	cm.mu.RLock()
	client := cm.client
	lastHealthCheck := cm.lastHealthCheck
	currentURL := cm.stats.CurrentURL
	cm.mu.RUnlock()

	if client == nil {
		return cm.connect(ctx)
	}

	// Test the connection if it's been a while since last health check
	if time.Since(lastHealthCheck) > time.Minute {
		if err := cm.quickHealthCheck(ctx, client); err != nil {
			cm.logger.Warn("Client health check failed, reconnecting", "error", err)
			cm.recordConnectionError(currentURL, "health_check_failed")
			return cm.reconnect(ctx)
		}

		cm.mu.Lock()
		cm.lastHealthCheck = time.Now()
		cm.mu.Unlock()
	}

	cm.mu.Lock()
	cm.stats.TotalRequests++
	cm.mu.Unlock()

	return client, nil
}

// GetSubscribeClient returns a client dialed over the WebSocket endpoint.
// Log subscriptions require a streaming transport.
func (cm *ConnectionManager) GetSubscribeClient(ctx context.Context) (*ethclient.Client, error) {
	if cm.config.WSURL == "" {
		return nil, utils.NewAppError(utils.ErrCodeSubscription,
			"No WebSocket endpoint configured", "set node.ws_url to enable subscriptions")
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.wsClient != nil {
		return cm.wsClient, nil
	}

	client, err := cm.dialWithTimeout(ctx, cm.config.WSURL)
	if err != nil {
		cm.recordConnectionError(cm.config.WSURL, "ws_dial_failed")
		return nil, utils.NewAppError(utils.ErrCodeSubscription,
			"Failed to dial WebSocket endpoint", err.Error())
	}

	cm.wsClient = client
	cm.logger.Info("Connected to WebSocket endpoint", "url", cm.config.WSURL)
	return client, nil
}

// ResetSubscribeClient drops the WebSocket client so the next call redials.
// Called after a subscription error.
func (cm *ConnectionManager) ResetSubscribeClient() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.wsClient != nil {
		cm.wsClient.Close()
		cm.wsClient = nil
		cm.stats.Reconnects++
	}
}

// SupportsSubscriptions reports whether a WebSocket endpoint is configured
func (cm *ConnectionManager) SupportsSubscriptions() bool {
	return cm.config.WSURL != ""
}

// connect establishes a new connection
func (cm *ConnectionManager) connect(ctx context.Context) (*ethclient.Client, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	urls := cm.getAllURLs()

	for attempt := 0; attempt < cm.config.RetryAttempts; attempt++ {
		for i, url := range urls {
			cm.logger.Info("Attempting connection", "url", url, "attempt", attempt+1)

			client, err := cm.dialWithTimeout(ctx, url)
			if err != nil {
				cm.logger.Warn("Connection failed", "url", url, "error", err)
				cm.stats.FailedRequests++
				cm.recordConnectionError(url, "dial_failed")
				continue
			}

			// Verify the connection works
			if err := cm.quickHealthCheck(ctx, client); err != nil {
				client.Close()
				cm.logger.Warn("Health check failed after connection", "url", url, "error", err)
				cm.stats.FailedRequests++
				cm.recordConnectionError(url, "health_check_failed")
				continue
			}

			cm.client = client
			cm.currentIndex = i
			cm.stats.CurrentURL = url
			cm.stats.LastConnectedAt = time.Now()
			cm.isHealthy = true
			cm.lastHealthCheck = time.Now()

			cm.logger.Info("Successfully connected to node", "url", url)
			return client, nil
		}

		if attempt < cm.config.RetryAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cm.config.RetryDelay):
				// Continue to next attempt
			}
		}
	}

	cm.recordConnectionError(cm.primaryURL, "exhausted")

	err := utils.NewAppError(utils.ErrCodeConnection, "Failed to connect to any node",
		"All connection attempts exhausted")
	return nil, err
}

// reconnect tries to reconnect to the configured nodes
func (cm *ConnectionManager) reconnect(ctx context.Context) (*ethclient.Client, error) {
	cm.mu.Lock()
	if cm.client != nil {
		cm.client.Close()
		cm.client = nil
	}
	cm.stats.Reconnects++
	cm.mu.Unlock()

	return cm.connect(ctx)
}

// dialWithTimeout creates a connection with timeout
func (cm *ConnectionManager) dialWithTimeout(ctx context.Context, url string) (*ethclient.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cm.config.RequestTimeout)
	defer cancel()

	return ethclient.DialContext(dialCtx, url)
}

// quickHealthCheck performs a quick health check
func (cm *ConnectionManager) quickHealthCheck(ctx context.Context, client *ethclient.Client) error {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := client.NetworkID(checkCtx)
	return err
}

// HealthCheck performs a comprehensive health check
func (cm *ConnectionManager) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return cm.HealthCheckWithContext(ctx)
}

// setUnhealthy flips the health flag under lock
func (cm *ConnectionManager) setUnhealthy() {
	cm.mu.Lock()
	cm.isHealthy = false
	cm.stats.IsHealthy = false
	cm.mu.Unlock()
}

// HealthCheckWithContext performs a comprehensive health check with context
func (cm *ConnectionManager) HealthCheckWithContext(ctx context.Context) error {
	client, err := cm.GetClientWithContext(ctx)
	if err != nil {
		cm.setUnhealthy()
		return err
	}

	networkID, err := client.NetworkID(ctx)
	if err != nil {
		cm.setUnhealthy()
		return utils.NewAppError(utils.ErrCodeConnection, "Failed to get network ID", err.Error())
	}

	expectedNetworkID := uint64(cm.config.NetworkID)
	if networkID.Uint64() != expectedNetworkID {
		cm.setUnhealthy()
		return utils.NewAppError(utils.ErrCodeConnection,
			"Network ID mismatch",
			fmt.Sprintf("expected %d, got %d", expectedNetworkID, networkID.Uint64()))
	}

	blockNumber, err := client.BlockNumber(ctx)
	if err != nil {
		cm.setUnhealthy()
		return utils.NewAppError(utils.ErrCodeConnection, "Failed to get latest block", err.Error())
	}

	cm.mu.Lock()
	cm.stats.NetworkID = networkID.Uint64()
	cm.stats.LatestBlock = blockNumber
	cm.stats.LastHealthCheck = time.Now()
	cm.stats.IsHealthy = true
	cm.lastHealthCheck = time.Now()
	cm.isHealthy = true
	cm.mu.Unlock()

	cm.logger.Info("Health check passed",
		"network_id", networkID.Uint64(),
		"latest_block", blockNumber,
		"url", cm.stats.CurrentURL)

	return nil
}

// GetNetworkID returns the network ID
func (cm *ConnectionManager) GetNetworkID() (uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := cm.GetClientWithContext(ctx)
	if err != nil {
		return 0, err
	}

	networkID, err := client.NetworkID(ctx)
	if err != nil {
		return 0, err
	}

	return networkID.Uint64(), nil
}

// GetLatestBlockNumber returns the latest block number
func (cm *ConnectionManager) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	client, err := cm.GetClientWithContext(ctx)
	if err != nil {
		return 0, err
	}

	blockNumber, err := client.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}

	cm.mu.Lock()
	cm.stats.LatestBlock = blockNumber
	cm.mu.Unlock()

	return blockNumber, nil
}

// IsConnected returns whether the manager is connected
func (cm *ConnectionManager) IsConnected() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.client != nil && cm.isHealthy
}

// Close closes the connections
func (cm *ConnectionManager) Close() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.client != nil {
		cm.client.Close()
		cm.client = nil
	}

	if cm.wsClient != nil {
		cm.wsClient.Close()
		cm.wsClient = nil
	}

	cm.isHealthy = false
	cm.logger.Info("Connection manager closed")
	return nil
}

// Stats returns connection statistics
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.stats
}

// getAllURLs returns all available URLs starting from current index
func (cm *ConnectionManager) getAllURLs() []string {
	urls := []string{cm.primaryURL}
	urls = append(urls, cm.backupURLs...)

	// Start from current index for load balancing
	if cm.currentIndex > 0 && cm.currentIndex < len(urls) {
		rotated := make([]string, len(urls))
		copy(rotated, urls[cm.currentIndex:])
		copy(rotated[len(urls)-cm.currentIndex:], urls[:cm.currentIndex])
		return rotated
	}

	return urls
}
