package connection

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/degenlabs/rollfeed/pkg/utils"
)

// timestampCacheSize bounds the block timestamp cache. Rolls cluster in
// recent blocks, so a small cache absorbs nearly all repeat lookups.
const timestampCacheSize = 1024

// BlockClient resolves block timestamps with a bounded cache. Each decoded
// roll needs the timestamp of its block, and several rolls often share one.
type BlockClient struct {
	manager Manager
	logger  *logrus.Logger

	mu    sync.Mutex
	cache map[uint64]time.Time
	order []uint64
}

// NewBlockClient creates a new block client
func NewBlockClient(manager Manager) *BlockClient {
	return &BlockClient{
		manager: manager,
		logger:  utils.GetLogger(),
		cache:   make(map[uint64]time.Time),
	}
}

// BlockTimestamp returns the timestamp of the given block
func (bc *BlockClient) BlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	bc.mu.Lock()
	if ts, ok := bc.cache[blockNumber]; ok {
		bc.mu.Unlock()
		return ts, nil
	}
	bc.mu.Unlock()

	client, err := bc.manager.GetClientWithContext(ctx)
	if err != nil {
		return time.Time{}, err
	}

	header, err := client.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return time.Time{}, utils.NewAppError(utils.ErrCodeBlockchain,
			"Failed to get block header", err.Error())
	}

	ts := time.Unix(int64(header.Time), 0).UTC()
	bc.put(blockNumber, ts)
	return ts, nil
}

// put inserts a timestamp, evicting the oldest entry when full
func (bc *BlockClient) put(blockNumber uint64, ts time.Time) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if _, ok := bc.cache[blockNumber]; ok {
		return
	}

	if len(bc.order) >= timestampCacheSize {
		oldest := bc.order[0]
		bc.order = bc.order[1:]
		delete(bc.cache, oldest)
	}

	bc.cache[blockNumber] = ts
	bc.order = append(bc.order, blockNumber)
}

// CacheSize returns the number of cached block timestamps
func (bc *BlockClient) CacheSize() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.cache)
}
