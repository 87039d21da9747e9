// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Node: NodeConfig{
			HTTPURL:        "https://rpc.sepolia.org",
			NetworkID:      11155111,
			RequestTimeout: 30 * time.Second,
			RetryAttempts:  3,
			RetryDelay:     5 * time.Second,
		},
		Games: GamesConfig{
			DiceAddress:     "0x000000000000000000000000000000000000d1ce",
			CoinflipAddress: "0x000000000000000000000000000000000000f11b",
		},
		Feed: FeedConfig{
			MaxRolls:       50,
			LookbackBlocks: 100000,
			ChunkSize:      5000,
			PollInterval:   15 * time.Second,
		},
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err, "Load with defaults must succeed")

	assert.Equal(t, "rollfeed", cfg.App.Name)
	assert.Equal(t, 50, cfg.Feed.MaxRolls)
	assert.Equal(t, uint64(100000), cfg.Feed.LookbackBlocks)
	assert.Equal(t, uint64(5000), cfg.Feed.ChunkSize)
	assert.Equal(t, 15*time.Second, cfg.Feed.PollInterval)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.True(t, cfg.Server.EnableMetrics)
	assert.False(t, cfg.Notify.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRequiresNodeURL(t *testing.T) {
	cfg := validConfig()
	cfg.Node.HTTPURL = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresBothGameAddresses(t *testing.T) {
	cfg := validConfig()
	cfg.Games.CoinflipAddress = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Games.DiceAddress = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMalformedAddresses(t *testing.T) {
	cfg := validConfig()
	cfg.Games.DiceAddress = "not-an-address"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Feed.PlayerAddress = "0x123"
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsWatchedPlayer(t *testing.T) {
	cfg := validConfig()
	cfg.Feed.PlayerAddress = "0x1111111111111111111111111111111111111111"
	assert.NoError(t, cfg.Validate())
}

func TestValidateFeedBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Feed.MaxRolls = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Feed.ChunkSize = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Feed.PollInterval = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateNotifyRequiresURL(t *testing.T) {
	cfg := validConfig()
	cfg.Notify.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg.Notify.WebhookURL = "https://example.com/hook"
	assert.NoError(t, cfg.Validate())
}
