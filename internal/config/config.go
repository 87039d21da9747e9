// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/degenlabs/rollfeed/pkg/utils"
)

// Config holds all configuration for the application
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Node    NodeConfig    `mapstructure:"node"`
	Games   GamesConfig   `mapstructure:"games"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// NodeConfig contains blockchain node connection configuration
type NodeConfig struct {
	HTTPURL        string        `mapstructure:"http_url"`
	WSURL          string        `mapstructure:"ws_url"`
	BackupNodes    []string      `mapstructure:"backup_nodes"`
	NetworkID      int           `mapstructure:"network_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
}

// GamesConfig holds the two fixed game contract addresses
type GamesConfig struct {
	DiceAddress     string `mapstructure:"dice_address"`
	CoinflipAddress string `mapstructure:"coinflip_address"`
}

// FeedConfig contains roll feed configuration
type FeedConfig struct {
	MaxRolls       int           `mapstructure:"max_rolls"`
	LookbackBlocks uint64        `mapstructure:"lookback_blocks"`
	ChunkSize      uint64        `mapstructure:"chunk_size"`
	PlayerAddress  string        `mapstructure:"player_address"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

// NotifyConfig contains webhook push configuration
type NotifyConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	WebhookURL    string        `mapstructure:"webhook_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
	EnableHealth  bool          `mapstructure:"enable_health"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, file
	File   string `mapstructure:"file"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./internal/config")
	}

	viper.SetEnvPrefix("ROLLFEED")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override with environment variables if present
	if nodeURL := os.Getenv("ROLLFEED_NODE_URL"); nodeURL != "" {
		config.Node.HTTPURL = nodeURL
	}
	if wsURL := os.Getenv("ROLLFEED_NODE_WS_URL"); wsURL != "" {
		config.Node.WSURL = wsURL
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "rollfeed")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	// Node defaults
	viper.SetDefault("node.http_url", "https://rpc.sepolia.org")
	viper.SetDefault("node.ws_url", "")
	viper.SetDefault("node.network_id", 11155111)
	viper.SetDefault("node.request_timeout", "30s")
	viper.SetDefault("node.retry_attempts", 3)
	viper.SetDefault("node.retry_delay", "5s")

	// Feed defaults
	viper.SetDefault("feed.max_rolls", 50)
	viper.SetDefault("feed.lookback_blocks", 100000)
	viper.SetDefault("feed.chunk_size", 5000)
	viper.SetDefault("feed.player_address", "")
	viper.SetDefault("feed.poll_interval", "15s")

	// Notify defaults
	viper.SetDefault("notify.enabled", false)
	viper.SetDefault("notify.timeout", "10s")
	viper.SetDefault("notify.retry_attempts", 3)
	viper.SetDefault("notify.retry_delay", "2s")

	// Server defaults
	viper.SetDefault("server.port", 8081)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")
	viper.SetDefault("server.enable_metrics", true)
	viper.SetDefault("server.enable_health", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Node.HTTPURL == "" {
		return fmt.Errorf("node HTTP URL is required")
	}
	if c.Games.DiceAddress == "" || c.Games.CoinflipAddress == "" {
		return fmt.Errorf("both game contract addresses are required")
	}
	if !utils.IsValidAddress(c.Games.DiceAddress) {
		return fmt.Errorf("dice contract address is not a valid address: %s", c.Games.DiceAddress)
	}
	if !utils.IsValidAddress(c.Games.CoinflipAddress) {
		return fmt.Errorf("coinflip contract address is not a valid address: %s", c.Games.CoinflipAddress)
	}
	if c.Feed.PlayerAddress != "" && !utils.IsValidAddress(c.Feed.PlayerAddress) {
		return fmt.Errorf("watched player address is not a valid address: %s", c.Feed.PlayerAddress)
	}
	if c.Feed.MaxRolls <= 0 {
		return fmt.Errorf("feed max rolls must be positive")
	}
	if c.Feed.ChunkSize == 0 {
		return fmt.Errorf("feed chunk size must be positive")
	}
	if c.Feed.PollInterval <= 0 {
		return fmt.Errorf("feed poll interval must be positive")
	}
	if c.Notify.Enabled && c.Notify.WebhookURL == "" {
		return fmt.Errorf("notify webhook URL is required when notify is enabled")
	}
	return nil
}
