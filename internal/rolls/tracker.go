// File: internal/rolls/tracker.go
package rolls

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/degenlabs/rollfeed/internal/connection"
	"github.com/degenlabs/rollfeed/internal/feed"
	"github.com/degenlabs/rollfeed/internal/metrics"
	"github.com/degenlabs/rollfeed/pkg/utils"
)

// Ingestion mode of the live path
const (
	ModeWebSocket = "websocket"
	ModePoll      = "poll"
)

// TrackerConfig holds the roll tracking configuration
type TrackerConfig struct {
	Games          []GameContract
	LookbackBlocks uint64
	ChunkSize      uint64
	WatchedPlayer  string // normalized lowercase address; empty watches all players
	PollInterval   time.Duration
	RetryDelay     time.Duration
}

// TrackerStats is a snapshot of tracker state
type TrackerStats struct {
	IsRunning       bool        `json:"is_running"`
	Mode            string      `json:"mode"`
	StartTime       time.Time   `json:"start_time"`
	BackfilledRolls int         `json:"backfilled_rolls"`
	BackfillBlocks  uint64      `json:"backfill_blocks"`
	Live            LiveStats   `json:"live"`
	Feed            *feed.Stats `json:"feed"`
}

// RollTracker orchestrates the full roll pipeline: a one-shot historical
// backfill into the feed followed by continuous live ingestion.
type RollTracker struct {
	config         *TrackerConfig
	manager        connection.Manager
	blocks         *connection.BlockClient
	feed           *feed.Feed
	scanner        *Scanner
	subscriber     *Subscriber
	logger         *logrus.Entry
	metricsManager *metrics.Manager

	mu         sync.RWMutex
	running    bool
	mode       string
	startTime  time.Time
	backfilled int
	cancel     context.CancelFunc
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewRollTracker creates a new roll tracker
func NewRollTracker(cfg *TrackerConfig, manager connection.Manager, fd *feed.Feed, metricsManager *metrics.Manager, notifier Notifier) (*RollTracker, error) {
	if len(cfg.Games) == 0 {
		return nil, utils.NewAppError(utils.ErrCodeConfiguration,
			"No game contracts configured", "at least one game contract is required")
	}
	if cfg.ChunkSize == 0 {
		return nil, utils.NewAppError(utils.ErrCodeConfiguration,
			"Invalid chunk size", "chunk_size must be positive")
	}

	blocks := connection.NewBlockClient(manager)

	return &RollTracker{
		config:         cfg,
		manager:        manager,
		blocks:         blocks,
		feed:           fd,
		scanner:        NewScanner(manager, blocks, fd, cfg, metricsManager),
		subscriber:     NewSubscriber(manager, blocks, fd, cfg, metricsManager, notifier),
		logger:         utils.WithComponent("tracker"),
		metricsManager: metricsManager,
	}, nil
}

// Start backfills the feed and then launches the live ingestion path. The
// passed context bounds the backfill; live ingestion runs until Stop.
func (rt *RollTracker) Start(ctx context.Context) error {
	liveCtx, cancel := context.WithCancel(context.Background())

	// Claim the running flag before releasing the lock for the backfill, so
	// a concurrent Start fails fast instead of double-launching the live
	// goroutines. The cancel func is published at the same time, letting
	// Stop abort a Start that is still backfilling.
	rt.mu.Lock()
	if rt.running {
		rt.mu.Unlock()
		cancel()
		return utils.NewAppError(utils.ErrCodeInternal, "Tracker already running", "")
	}
	rt.running = true
	rt.startTime = time.Now()
	rt.cancel = cancel
	rt.stopOnce = sync.Once{}
	rt.mu.Unlock()

	backfilled, latest, err := rt.scanner.Backfill(ctx)
	if err != nil {
		rt.mu.Lock()
		rt.running = false
		rt.mu.Unlock()
		cancel()
		return err
	}

	if liveCtx.Err() != nil {
		return utils.NewAppError(utils.ErrCodeInternal,
			"Tracker stopped during startup", "")
	}

	mode := ModePoll
	if rt.manager.SupportsSubscriptions() {
		mode = ModeWebSocket
		for _, game := range rt.config.Games {
			game := game
			rt.wg.Add(1)
			go func() {
				defer rt.wg.Done()
				rt.subscriber.WatchGame(liveCtx, game)
			}()
		}
	} else {
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			rt.subscriber.PollLoop(liveCtx, latest+1)
		}()
	}

	rt.mu.Lock()
	rt.mode = mode
	rt.backfilled = backfilled
	rt.mu.Unlock()

	if rt.metricsManager != nil {
		rt.metricsManager.GetPrometheusMetrics().UpdateComponentHealth("tracker", true)
	}

	rt.logger.WithFields(logrus.Fields{
		"mode":             mode,
		"backfilled_rolls": backfilled,
		"latest_block":     latest,
	}).Info("Roll tracker started")

	return nil
}

// Stop cancels live ingestion and waits for the worker goroutines to exit
func (rt *RollTracker) Stop() error {
	rt.mu.Lock()
	if !rt.running {
		rt.mu.Unlock()
		return nil
	}
	cancel := rt.cancel
	rt.mu.Unlock()

	rt.stopOnce.Do(func() {
		cancel()
		rt.wg.Wait()

		rt.mu.Lock()
		rt.running = false
		rt.mu.Unlock()

		if rt.metricsManager != nil {
			rt.metricsManager.GetPrometheusMetrics().UpdateComponentHealth("tracker", false)
		}

		rt.logger.Info("Roll tracker stopped")
	})

	return nil
}

// IsRunning reports whether the tracker is running
func (rt *RollTracker) IsRunning() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.running
}

// GetStats returns a snapshot of tracker state
func (rt *RollTracker) GetStats() *TrackerStats {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	return &TrackerStats{
		IsRunning:       rt.running,
		Mode:            rt.mode,
		StartTime:       rt.startTime,
		BackfilledRolls: rt.backfilled,
		BackfillBlocks:  rt.config.LookbackBlocks,
		Live:            rt.subscriber.Stats(),
		Feed:            rt.feed.GetStats(),
	}
}

// HealthStatus summarizes tracker and connection health
type HealthStatus struct {
	Healthy    bool     `json:"healthy"`
	Running    bool     `json:"running"`
	Mode       string   `json:"mode,omitempty"`
	Connection bool     `json:"connection"`
	FeedSize   int      `json:"feed_size"`
	Issues     []string `json:"issues,omitempty"`
}

// HealthCheck reports whether the pipeline is healthy
func (rt *RollTracker) HealthCheck(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Running:  rt.IsRunning(),
		FeedSize: rt.feed.Len(),
	}

	rt.mu.RLock()
	status.Mode = rt.mode
	rt.mu.RUnlock()

	if !status.Running {
		status.Issues = append(status.Issues, "tracker is not running")
	}

	if err := rt.manager.HealthCheckWithContext(ctx); err != nil {
		status.Issues = append(status.Issues, "node connection unhealthy: "+err.Error())
	} else {
		status.Connection = true
	}

	status.Healthy = status.Running && status.Connection

	if rt.metricsManager != nil {
		pm := rt.metricsManager.GetPrometheusMetrics()
		pm.UpdateComponentHealth("tracker", status.Running)
		pm.UpdateComponentHealth("connection", status.Connection)
	}

	return status
}
