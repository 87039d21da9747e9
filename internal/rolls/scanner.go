// File: internal/rolls/scanner.go
package rolls

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/degenlabs/rollfeed/internal/connection"
	"github.com/degenlabs/rollfeed/internal/feed"
	"github.com/degenlabs/rollfeed/internal/metrics"
	"github.com/degenlabs/rollfeed/internal/models"
	"github.com/degenlabs/rollfeed/pkg/utils"
)

// Scanner backfills historical rolls by filtering logs over a lookback
// window, one fixed-size chunk at a time. Chunk failures are logged and
// skipped: the feed is a bounded recent-rolls view, not an archive.
type Scanner struct {
	manager        connection.Manager
	blocks         *connection.BlockClient
	feed           *feed.Feed
	config         *TrackerConfig
	logger         *logrus.Entry
	metricsManager *metrics.Manager
}

// NewScanner creates a new backfill scanner
func NewScanner(manager connection.Manager, blocks *connection.BlockClient, fd *feed.Feed, cfg *TrackerConfig, metricsManager *metrics.Manager) *Scanner {
	return &Scanner{
		manager:        manager,
		blocks:         blocks,
		feed:           fd,
		config:         cfg,
		logger:         utils.WithComponent("scanner"),
		metricsManager: metricsManager,
	}
}

// blockRange is an inclusive block span [From, To]
type blockRange struct {
	From uint64
	To   uint64
}

// chunkRanges splits [from, to] into inclusive chunks of at most size blocks
func chunkRanges(from, to, size uint64) []blockRange {
	if to < from || size == 0 {
		return nil
	}

	ranges := make([]blockRange, 0, (to-from)/size+1)
	for start := from; start <= to; start += size {
		end := start + size - 1
		if end > to {
			end = to
		}
		ranges = append(ranges, blockRange{From: start, To: end})
		if end == to {
			break
		}
	}
	return ranges
}

// Backfill scans the lookback window for both games concurrently and merges
// the results into the feed. Returns the number of rolls admitted and the
// latest block scanned.
func (s *Scanner) Backfill(ctx context.Context) (int, uint64, error) {
	latest, err := s.manager.GetLatestBlockNumber(ctx)
	if err != nil {
		return 0, 0, utils.NewAppError(utils.ErrCodeBlockchain,
			"Failed to get latest block for backfill", err.Error())
	}

	if s.metricsManager != nil {
		s.metricsManager.GetPrometheusMetrics().UpdateLatestChainBlock(latest)
	}

	from := uint64(0)
	if latest >= s.config.LookbackBlocks {
		from = latest - s.config.LookbackBlocks + 1
	}

	s.logger.WithFields(logrus.Fields{
		"from_block": from,
		"to_block":   latest,
		"chunk_size": s.config.ChunkSize,
		"games":      len(s.config.Games),
	}).Info("Starting historical backfill")

	results := make([][]*models.Roll, len(s.config.Games))

	g, gctx := errgroup.WithContext(ctx)
	for i, game := range s.config.Games {
		i, game := i, game
		g.Go(func() error {
			rolls, err := s.scanGame(gctx, game, from, latest)
			if err != nil {
				return err
			}
			results[i] = rolls
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	added := 0
	for i, game := range s.config.Games {
		n := s.feed.Merge(results[i])
		added += n

		if s.metricsManager != nil {
			pm := s.metricsManager.GetPrometheusMetrics()
			for j := 0; j < n; j++ {
				pm.RecordRollIngested(string(game.Game), "backfill")
			}
		}

		s.logger.WithFields(logrus.Fields{
			"game":    game.Game,
			"decoded": len(results[i]),
			"added":   n,
		}).Info("Backfill complete for game")
	}

	if s.metricsManager != nil {
		s.metricsManager.GetPrometheusMetrics().UpdateFeedSize(s.feed.Len())
	}

	return added, latest, nil
}

// scanGame filters Roll logs for one contract across the window. A failed
// chunk is skipped; only context cancellation aborts the scan.
func (s *Scanner) scanGame(ctx context.Context, game GameContract, from, to uint64) ([]*models.Roll, error) {
	start := time.Now()
	rolls := make([]*models.Roll, 0)

	for _, r := range chunkRanges(from, to, s.config.ChunkSize) {
		if err := ctx.Err(); err != nil {
			return rolls, err
		}

		logs, err := s.filterChunk(ctx, game.Address, r)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"game":       game.Game,
				"from_block": r.From,
				"to_block":   r.To,
				"error":      err,
			}).Warn("Chunk scan failed, skipping range")

			if s.metricsManager != nil {
				s.metricsManager.GetPrometheusMetrics().RecordChunkScanned(string(game.Game), "error")
			}
			continue
		}

		if s.metricsManager != nil {
			s.metricsManager.GetPrometheusMetrics().RecordChunkScanned(string(game.Game), "ok")
		}

		for i := range logs {
			lg := &logs[i]
			if lg.Removed {
				s.recordDropped("removed")
				continue
			}

			roll, err := DecodeRollLog(lg, game.Game)
			if err != nil {
				s.logger.WithFields(logrus.Fields{
					"game":    game.Game,
					"tx_hash": lg.TxHash.Hex(),
					"error":   err,
				}).Warn("Failed to decode roll log")
				s.recordDropped("decode_error")
				continue
			}

			ts, err := s.blocks.BlockTimestamp(ctx, roll.BlockNumber)
			if err != nil {
				s.logger.WithFields(logrus.Fields{
					"game":  game.Game,
					"block": roll.BlockNumber,
					"error": err,
				}).Warn("Failed to resolve block timestamp")
				s.recordDropped("timestamp_error")
				continue
			}
			roll.Timestamp = ts

			rolls = append(rolls, roll)
		}
	}

	if s.metricsManager != nil {
		s.metricsManager.GetPrometheusMetrics().RecordBackfillDuration(string(game.Game), time.Since(start))
	}

	return rolls, nil
}

// filterChunk runs one eth_getLogs query for a contract over a block range
func (s *Scanner) filterChunk(ctx context.Context, address common.Address, r blockRange) ([]types.Log, error) {
	client, err := s.manager.GetClientWithContext(ctx)
	if err != nil {
		return nil, err
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(r.From),
		ToBlock:   new(big.Int).SetUint64(r.To),
		Addresses: []common.Address{address},
		Topics:    [][]common.Hash{{RollEventTopic}},
	}

	return client.FilterLogs(ctx, query)
}

func (s *Scanner) recordDropped(reason string) {
	if s.metricsManager != nil {
		s.metricsManager.GetPrometheusMetrics().RecordRollDropped(reason)
	}
}
