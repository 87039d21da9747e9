// File: internal/rolls/subscriber.go
package rolls

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/degenlabs/rollfeed/internal/connection"
	"github.com/degenlabs/rollfeed/internal/feed"
	"github.com/degenlabs/rollfeed/internal/metrics"
	"github.com/degenlabs/rollfeed/internal/models"
	"github.com/degenlabs/rollfeed/pkg/utils"
)

// Notifier pushes newly ingested live rolls to an external sink
type Notifier interface {
	NotifyRoll(ctx context.Context, roll *models.Roll)
}

// LiveStats holds counters for the live ingestion path
type LiveStats struct {
	RollsIngested uint64    `json:"rolls_ingested"`
	RollsFiltered uint64    `json:"rolls_filtered"`
	Reconnects    uint64    `json:"reconnects"`
	LastRollAt    time.Time `json:"last_roll_at"`
}

// Subscriber ingests new rolls as they are emitted, either over a WebSocket
// log subscription per game contract or, when no streaming endpoint is
// configured, by polling new block ranges.
type Subscriber struct {
	manager        connection.Manager
	blocks         *connection.BlockClient
	feed           *feed.Feed
	config         *TrackerConfig
	logger         *logrus.Entry
	metricsManager *metrics.Manager
	notifier       Notifier

	mu    sync.Mutex
	stats LiveStats
}

// NewSubscriber creates a new live roll subscriber
func NewSubscriber(manager connection.Manager, blocks *connection.BlockClient, fd *feed.Feed, cfg *TrackerConfig, metricsManager *metrics.Manager, notifier Notifier) *Subscriber {
	return &Subscriber{
		manager:        manager,
		blocks:         blocks,
		feed:           fd,
		config:         cfg,
		logger:         utils.WithComponent("subscriber"),
		metricsManager: metricsManager,
		notifier:       notifier,
	}
}

// Stats returns a snapshot of the live ingestion counters
func (s *Subscriber) Stats() LiveStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// WatchGame subscribes to Roll logs for one game contract and resubscribes
// after failures until the context is cancelled. Blocks; run per game in its
// own goroutine.
func (s *Subscriber) WatchGame(ctx context.Context, game GameContract) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := s.subscribeOnce(ctx, game)
		if ctx.Err() != nil {
			return
		}

		s.logger.WithFields(logrus.Fields{
			"game":  game.Game,
			"error": err,
		}).Warn("Log subscription dropped, reconnecting")

		s.manager.ResetSubscribeClient()

		s.mu.Lock()
		s.stats.Reconnects++
		s.mu.Unlock()

		if s.metricsManager != nil {
			s.metricsManager.GetPrometheusMetrics().RecordSubscriptionReconnect(string(game.Game))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.config.RetryDelay):
		}
	}
}

// subscribeOnce holds a single subscription open until it errors or the
// context ends
func (s *Subscriber) subscribeOnce(ctx context.Context, game GameContract) error {
	client, err := s.manager.GetSubscribeClient(ctx)
	if err != nil {
		return err
	}

	query := ethereum.FilterQuery{
		Addresses: []common.Address{game.Address},
		Topics:    [][]common.Hash{{RollEventTopic}},
	}

	logs := make(chan types.Log, 64)
	sub, err := client.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeSubscription,
			"Failed to subscribe to Roll logs", err.Error())
	}
	defer sub.Unsubscribe()

	s.logger.WithFields(logrus.Fields{
		"game":    game.Game,
		"address": game.Address.Hex(),
	}).Info("Subscribed to Roll logs")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case lg := <-logs:
			s.handleLog(ctx, &lg, game.Game, "live")
		}
	}
}

// PollLoop ingests new rolls by filtering fresh block ranges on a ticker.
// Used when no WebSocket endpoint is configured. Blocks until the context
// is cancelled.
func (s *Subscriber) PollLoop(ctx context.Context, fromBlock uint64) {
	s.logger.WithFields(logrus.Fields{
		"from_block": fromBlock,
		"interval":   s.config.PollInterval,
	}).Info("Starting poll loop, no WebSocket endpoint configured")

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	next := fromBlock

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		latest, err := s.manager.GetLatestBlockNumber(ctx)
		if err != nil {
			s.logger.WithField("error", err).Warn("Failed to get latest block in poll loop")
			continue
		}
		if latest < next {
			continue
		}

		if s.metricsManager != nil {
			s.metricsManager.GetPrometheusMetrics().UpdateLatestChainBlock(latest)
		}

		for _, game := range s.config.Games {
			s.pollRange(ctx, game, next, latest)
		}

		next = latest + 1
	}
}

// pollRange filters one contract's Roll logs over [from, to] and ingests them
func (s *Subscriber) pollRange(ctx context.Context, game GameContract, from, to uint64) {
	client, err := s.manager.GetClientWithContext(ctx)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"game":  game.Game,
			"error": err,
		}).Warn("Failed to get client in poll loop")
		return
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{game.Address},
		Topics:    [][]common.Hash{{RollEventTopic}},
	}

	// The cursor advances regardless: a failed range is skipped, matching the
	// best-effort backfill.
	logs, err := client.FilterLogs(ctx, query)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"game":       game.Game,
			"from_block": from,
			"to_block":   to,
			"error":      err,
		}).Warn("Poll filter failed, skipping range")
		return
	}

	for i := range logs {
		s.handleLog(ctx, &logs[i], game.Game, "poll")
	}
}

// handleLog decodes one raw log, applies the watched-player filter, attaches
// the block timestamp and admits the roll into the feed.
func (s *Subscriber) handleLog(ctx context.Context, lg *types.Log, game models.GameType, source string) {
	if lg.Removed {
		s.recordDropped("removed")
		return
	}

	roll, err := DecodeRollLog(lg, game)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"game":    game,
			"tx_hash": lg.TxHash.Hex(),
			"error":   err,
		}).Warn("Failed to decode live roll log")
		s.recordDropped("decode_error")
		return
	}

	// The watched-player filter narrows the live stream only; backfill always
	// covers all players so the feed starts populated.
	if s.config.WatchedPlayer != "" && roll.Player != s.config.WatchedPlayer {
		s.mu.Lock()
		s.stats.RollsFiltered++
		s.mu.Unlock()
		s.recordDropped("filtered")
		return
	}

	ts, err := s.blocks.BlockTimestamp(ctx, roll.BlockNumber)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"game":  game,
			"block": roll.BlockNumber,
			"error": err,
		}).Warn("Failed to resolve block timestamp for live roll")
		s.recordDropped("timestamp_error")
		return
	}
	roll.Timestamp = ts

	if !s.feed.Add(roll) {
		s.recordDropped("duplicate")
		return
	}

	s.mu.Lock()
	s.stats.RollsIngested++
	s.stats.LastRollAt = time.Now()
	s.mu.Unlock()

	if s.metricsManager != nil {
		pm := s.metricsManager.GetPrometheusMetrics()
		pm.RecordRollIngested(string(game), source)
		pm.UpdateFeedSize(s.feed.Len())
	}

	s.logger.WithFields(logrus.Fields{
		"game":    roll.Game,
		"player":  roll.Player,
		"amount":  roll.Amount,
		"win":     roll.Win,
		"tx_hash": roll.TxHash,
		"block":   roll.BlockNumber,
	}).Info("New roll ingested")

	if s.notifier != nil {
		go s.notifier.NotifyRoll(context.Background(), roll)
	}
}

func (s *Subscriber) recordDropped(reason string) {
	if s.metricsManager != nil {
		s.metricsManager.GetPrometheusMetrics().RecordRollDropped(reason)
	}
}
