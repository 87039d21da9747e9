// File: cmd/rollfeed/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/degenlabs/rollfeed/internal/config"
	"github.com/degenlabs/rollfeed/internal/connection"
	"github.com/degenlabs/rollfeed/internal/feed"
	"github.com/degenlabs/rollfeed/internal/metrics"
	"github.com/degenlabs/rollfeed/internal/models"
	"github.com/degenlabs/rollfeed/internal/notify"
	"github.com/degenlabs/rollfeed/internal/rolls"
	"github.com/degenlabs/rollfeed/internal/server"
	"github.com/degenlabs/rollfeed/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// Application represents the main application
type Application struct {
	config     *config.Config
	logger     *logrus.Logger
	connection *connection.ConnectionManager
	feed       *feed.Feed
	notifier   *notify.WebhookNotifier
	tracker    *rolls.RollTracker
	metrics    *metrics.Manager
	server     *server.HTTPServer
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := app.initializeLogger(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := app.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return app, nil
}

// initializeLogger initializes the application logger
func (app *Application) initializeLogger() error {
	logCfg := app.config.Logging

	if err := utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger = utils.GetLogger()
	app.logger.Info("Logger initialized",
		"level", logCfg.Level,
		"format", logCfg.Format,
		"output", logCfg.Output)

	return nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	app.logger.Info("Initializing application components")

	app.metrics = metrics.NewManager()
	app.connection = connection.NewConnectionManager(&app.config.Node)
	app.connection.SetMetricsManager(app.metrics)
	app.feed = feed.New(app.config.Feed.MaxRolls)
	app.notifier = notify.NewWebhookNotifier(&app.config.Notify, app.metrics)

	trackerCfg, err := trackerConfig(app.config)
	if err != nil {
		return err
	}

	app.tracker, err = rolls.NewRollTracker(trackerCfg, app.connection, app.feed, app.metrics, app.notifier)
	if err != nil {
		return fmt.Errorf("failed to create roll tracker: %w", err)
	}

	app.server, err = server.NewHTTPServer(&app.config.Server, AppVersion,
		app.feed, app.tracker, app.connection, app.metrics)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	app.logger.Info("All components initialized successfully")
	return nil
}

// trackerConfig maps the loaded configuration onto the tracker
func trackerConfig(cfg *config.Config) (*rolls.TrackerConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	watched := ""
	if cfg.Feed.PlayerAddress != "" {
		watched = utils.NormalizeAddress(cfg.Feed.PlayerAddress)
	}

	return &rolls.TrackerConfig{
		Games: []rolls.GameContract{
			{Game: models.GameDice, Address: common.HexToAddress(cfg.Games.DiceAddress)},
			{Game: models.GameCoinflip, Address: common.HexToAddress(cfg.Games.CoinflipAddress)},
		},
		LookbackBlocks: cfg.Feed.LookbackBlocks,
		ChunkSize:      cfg.Feed.ChunkSize,
		WatchedPlayer:  watched,
		PollInterval:   cfg.Feed.PollInterval,
		RetryDelay:     cfg.Node.RetryDelay,
	}, nil
}

// Start starts the application
func (app *Application) Start() error {
	app.logger.Info("Starting rollfeed",
		"version", AppVersion,
		"environment", app.config.App.Environment)

	if err := app.server.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if err := app.tracker.Start(app.ctx); err != nil {
		return fmt.Errorf("failed to start roll tracker: %w", err)
	}

	app.logger.Info("rollfeed started successfully",
		"server_address", fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port),
		"node", app.config.Node.HTTPURL,
		"dice", app.config.Games.DiceAddress,
		"coinflip", app.config.Games.CoinflipAddress)

	return nil
}

// Stop stops the application gracefully
func (app *Application) Stop() error {
	app.logger.Info("Stopping rollfeed")

	app.cancel()

	// Stop components in reverse order
	if app.server != nil {
		if err := app.server.Stop(); err != nil {
			app.logger.Error("Failed to stop HTTP server", "error", err)
		}
	}

	if app.tracker != nil {
		if err := app.tracker.Stop(); err != nil {
			app.logger.Error("Failed to stop roll tracker", "error", err)
		}
	}

	if app.connection != nil {
		if err := app.connection.Close(); err != nil {
			app.logger.Error("Failed to close connection", "error", err)
		}
	}

	app.logger.Info("rollfeed stopped successfully")
	return nil
}

// CLI Commands

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "rollfeed",
	Short:   "On-chain dice and coinflip roll feed",
	Long:    `A service that tracks Roll events from dice and coinflip game contracts and serves the most recent bets over HTTP.`,
	Version: AppVersion,
	RunE:    runFeed,
}

// runFeed is the main command to run the roll feed
func runFeed(cmd *cobra.Command, args []string) error {
	configPath := viper.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	<-signalChan
	fmt.Println("\nReceived shutdown signal, stopping application...")

	if err := app.Stop(); err != nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}

	return nil
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rollfeed %s\n", AppVersion)
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		fmt.Printf("Node: %s\n", cfg.Node.HTTPURL)
		fmt.Printf("Dice contract: %s\n", cfg.Games.DiceAddress)
		fmt.Printf("Coinflip contract: %s\n", cfg.Games.CoinflipAddress)
		fmt.Printf("Feed cap: %d rolls\n", cfg.Feed.MaxRolls)

		return nil
	},
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connectivity and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		fmt.Println("Testing rollfeed connectivity...")

		fmt.Printf("Testing node connection to %s...\n", cfg.Node.HTTPURL)
		conn := connection.NewConnectionManager(&cfg.Node)
		defer conn.Close()

		if err := conn.HealthCheck(); err != nil {
			return fmt.Errorf("failed to connect to node: %w", err)
		}
		fmt.Println("✓ Node connection successful")

		if cfg.Node.WSURL != "" {
			fmt.Printf("Testing WebSocket endpoint %s...\n", cfg.Node.WSURL)
			if _, err := conn.GetSubscribeClient(context.Background()); err != nil {
				return fmt.Errorf("failed to connect to WebSocket endpoint: %w", err)
			}
			fmt.Println("✓ WebSocket connection successful")
		} else {
			fmt.Println("No WebSocket endpoint configured, live path will poll")
		}

		fmt.Println("\nAll connectivity tests passed! ✓")
		return nil
	},
}

// init initializes the CLI commands
func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug mode")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(testCmd)
	configCmd.AddCommand(validateConfigCmd)
}

// main is the entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
