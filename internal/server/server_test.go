// File: internal/server/server_test.go
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/degenlabs/rollfeed/internal/config"
	"github.com/degenlabs/rollfeed/internal/connection"
	"github.com/degenlabs/rollfeed/internal/feed"
	"github.com/degenlabs/rollfeed/internal/models"
	"github.com/degenlabs/rollfeed/internal/rolls"
)

// mockManager satisfies connection.Manager without touching the network
type mockManager struct {
	healthErr error
}

func (m *mockManager) GetClient() (*ethclient.Client, error) { return nil, nil }
func (m *mockManager) GetClientWithContext(ctx context.Context) (*ethclient.Client, error) {
	return nil, nil
}
func (m *mockManager) GetSubscribeClient(ctx context.Context) (*ethclient.Client, error) {
	return nil, nil
}
func (m *mockManager) ResetSubscribeClient()                              {}
func (m *mockManager) SupportsSubscriptions() bool                        { return false }
func (m *mockManager) HealthCheck() error                                 { return m.healthErr }
func (m *mockManager) HealthCheckWithContext(ctx context.Context) error   { return m.healthErr }
func (m *mockManager) GetNetworkID() (uint64, error)                      { return 31337, nil }
func (m *mockManager) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	return 1000, nil
}
func (m *mockManager) IsConnected() bool               { return m.healthErr == nil }
func (m *mockManager) Close() error                    { return nil }
func (m *mockManager) Stats() connection.ConnectionStats {
	return connection.ConnectionStats{CurrentURL: "mock://node"}
}

func newTestServer(t *testing.T) (*HTTPServer, *feed.Feed) {
	t.Helper()

	fd := feed.New(10)
	manager := &mockManager{}

	trackerCfg := &rolls.TrackerConfig{
		Games: []rolls.GameContract{
			{Game: models.GameDice, Address: common.HexToAddress("0x000000000000000000000000000000000000d1ce")},
			{Game: models.GameCoinflip, Address: common.HexToAddress("0x000000000000000000000000000000000000f11b")},
		},
		LookbackBlocks: 100,
		ChunkSize:      50,
		PollInterval:   time.Second,
		RetryDelay:     time.Second,
	}

	tracker, err := rolls.NewRollTracker(trackerCfg, manager, fd, nil, nil)
	require.NoError(t, err, "Failed to create roll tracker")

	serverCfg := &config.ServerConfig{
		Port:          0,
		Host:          "127.0.0.1",
		ReadTimeout:   5 * time.Second,
		WriteTimeout:  5 * time.Second,
		EnableMetrics: false,
		EnableHealth:  true,
	}

	srv, err := NewHTTPServer(serverCfg, "test", fd, tracker, manager, nil)
	require.NoError(t, err, "Failed to create HTTP server")

	return srv, fd
}

func seedFeed(t *testing.T, fd *feed.Feed) {
	t.Helper()

	rollsToAdd := []*models.Roll{
		{
			Game:        models.GameDice,
			BlockNumber: 100,
			LogIndex:    0,
			TxHash:      "0xaaa1",
			Player:      "0x1111111111111111111111111111111111111111",
			Amount:      "1000000000000000000",
			Choice:      3,
			Outcome:     3,
			Win:         true,
			Timestamp:   time.Now(),
		},
		{
			Game:        models.GameCoinflip,
			BlockNumber: 101,
			LogIndex:    2,
			TxHash:      "0xaaa2",
			Player:      "0x2222222222222222222222222222222222222222",
			Amount:      "500000000000000000",
			Choice:      1,
			Outcome:     0,
			Win:         false,
			Timestamp:   time.Now(),
		},
	}

	added := fd.Merge(rollsToAdd)
	require.Equal(t, 2, added)
}

func doRequest(srv *HTTPServer, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	return rec
}

func TestListRollsHandler(t *testing.T) {
	srv, fd := newTestServer(t)
	seedFeed(t, fd)

	rec := doRequest(srv, "GET", "/api/v1/rolls")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rolls []*models.Roll `json:"rolls"`
		Total int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Equal(t, 2, resp.Total)
	assert.Equal(t, "0xaaa2", resp.Rolls[0].TxHash, "rolls must come back newest first")
	assert.Equal(t, "0xaaa1", resp.Rolls[1].TxHash)
}

func TestListRollsHandlerGameFilter(t *testing.T) {
	srv, fd := newTestServer(t)
	seedFeed(t, fd)

	rec := doRequest(srv, "GET", "/api/v1/rolls?game=coinflip")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rolls []*models.Roll `json:"rolls"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rolls, 1)
	assert.Equal(t, models.GameCoinflip, resp.Rolls[0].Game)
}

func TestListRollsHandlerPlayerFilter(t *testing.T) {
	srv, fd := newTestServer(t)
	seedFeed(t, fd)

	rec := doRequest(srv, "GET", "/api/v1/rolls?player=0x1111111111111111111111111111111111111111")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rolls []*models.Roll `json:"rolls"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rolls, 1)
	assert.Equal(t, "0xaaa1", resp.Rolls[0].TxHash)
}

func TestListRollsHandlerRejectsBadParams(t *testing.T) {
	srv, fd := newTestServer(t)
	seedFeed(t, fd)

	assert.Equal(t, http.StatusBadRequest, doRequest(srv, "GET", "/api/v1/rolls?game=poker").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(srv, "GET", "/api/v1/rolls?player=nothex").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(srv, "GET", "/api/v1/rolls?limit=-1").Code)
}

func TestGetRollHandler(t *testing.T) {
	srv, fd := newTestServer(t)
	seedFeed(t, fd)

	rec := doRequest(srv, "GET", "/api/v1/rolls/0xaaa1")
	require.Equal(t, http.StatusOK, rec.Code)

	var roll models.Roll
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roll))
	assert.Equal(t, uint64(100), roll.BlockNumber)

	rec = doRequest(srv, "GET", "/api/v1/rolls/0xmissing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, "GET", "/api/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestDetailedHealthHandlerTrackerStopped(t *testing.T) {
	srv, _ := newTestServer(t)

	// Tracker never started: service reports unhealthy
	rec := doRequest(srv, "GET", "/api/v1/health/detailed")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTrackerStatusHandler(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, "GET", "/api/v1/tracker/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["running"])
}

func TestStopTrackerHandlerWhenNotRunning(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, "POST", "/api/v1/tracker/stop")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIndexPage(t *testing.T) {
	srv, fd := newTestServer(t)
	seedFeed(t, fd)

	rec := doRequest(srv, "GET", "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, "dice")
	assert.Contains(t, body, "coinflip")
	assert.Contains(t, body, "1.0000", "amount must render in ether")
}

func TestWeiToEther(t *testing.T) {
	assert.Equal(t, "1.0000", weiToEther("1000000000000000000"))
	assert.Equal(t, "0.5000", weiToEther("500000000000000000"))
	assert.Equal(t, "garbage", weiToEther("garbage"))
}
