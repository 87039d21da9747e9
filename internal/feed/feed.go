// File: internal/feed/feed.go
package feed

import (
	"sort"
	"sync"
	"time"

	"github.com/degenlabs/rollfeed/internal/models"
	"github.com/degenlabs/rollfeed/pkg/utils"
)

// Feed is the bounded, most-recent-first list of rolls. Entries are ordered
// descending by block number (log index breaks ties within a block),
// deduplicated by transaction hash, and capped at a fixed size. The first
// roll seen for a transaction hash wins; later duplicates are dropped.
type Feed struct {
	mu       sync.RWMutex
	cap      int
	rolls    []*models.Roll
	byTxHash map[string]struct{}

	added     uint64
	dropped   uint64
	updatedAt time.Time
}

// Stats provides feed statistics
type Stats struct {
	Size      int       `json:"size"`
	Cap       int       `json:"cap"`
	Added     uint64    `json:"added"`
	Dropped   uint64    `json:"dropped"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a feed capped at the given size
func New(cap int) *Feed {
	if cap <= 0 {
		cap = 50
	}
	return &Feed{
		cap:      cap,
		rolls:    make([]*models.Roll, 0, cap),
		byTxHash: make(map[string]struct{}),
	}
}

// Add inserts a roll unless its transaction hash is already present.
// Returns true if the roll entered the feed.
func (f *Feed) Add(roll *models.Roll) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.add(roll)
}

// Merge inserts a batch of rolls and returns how many entered the feed
func (f *Feed) Merge(rolls []*models.Roll) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	added := 0
	for _, roll := range rolls {
		if f.add(roll) {
			added++
		}
	}
	return added
}

// add holds the lock. Rolls are inserted in order and the tail trimmed, so
// the slice stays sorted descending by (block number, log index).
func (f *Feed) add(roll *models.Roll) bool {
	key := utils.NormalizeTxHash(roll.TxHash)
	if _, exists := f.byTxHash[key]; exists {
		f.dropped++
		return false
	}

	idx := sort.Search(len(f.rolls), func(i int) bool {
		return older(f.rolls[i], roll)
	})

	// Roll is older than everything in a full feed: it would be trimmed
	// straight away, so don't admit it at all.
	if idx == len(f.rolls) && len(f.rolls) >= f.cap {
		f.dropped++
		return false
	}

	f.rolls = append(f.rolls, nil)
	copy(f.rolls[idx+1:], f.rolls[idx:])
	f.rolls[idx] = roll
	f.byTxHash[key] = struct{}{}

	if len(f.rolls) > f.cap {
		evicted := f.rolls[len(f.rolls)-1]
		f.rolls = f.rolls[:len(f.rolls)-1]
		delete(f.byTxHash, utils.NormalizeTxHash(evicted.TxHash))
	}

	f.added++
	f.updatedAt = time.Now()
	return true
}

// older reports whether a was emitted before b
func older(a, b *models.Roll) bool {
	if a.BlockNumber != b.BlockNumber {
		return a.BlockNumber < b.BlockNumber
	}
	return a.LogIndex < b.LogIndex
}

// Rolls returns a snapshot of the feed, newest first
func (f *Feed) Rolls() []*models.Roll {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]*models.Roll, len(f.rolls))
	copy(out, f.rolls)
	return out
}

// Query returns rolls matching the filter, newest first
func (f *Feed) Query(filter *models.RollFilter) []*models.Roll {
	f.mu.RLock()
	defer f.mu.RUnlock()

	limit := 0
	if filter != nil {
		limit = filter.Limit
	}

	out := make([]*models.Roll, 0, len(f.rolls))
	for _, roll := range f.rolls {
		if !filter.Matches(roll) {
			continue
		}
		out = append(out, roll)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Get returns the roll with the given transaction hash, or nil
func (f *Feed) Get(txHash string) *models.Roll {
	key := utils.NormalizeTxHash(txHash)

	f.mu.RLock()
	defer f.mu.RUnlock()

	if _, exists := f.byTxHash[key]; !exists {
		return nil
	}
	for _, roll := range f.rolls {
		if utils.NormalizeTxHash(roll.TxHash) == key {
			return roll
		}
	}
	return nil
}

// Contains reports whether a transaction hash is already in the feed
func (f *Feed) Contains(txHash string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	_, exists := f.byTxHash[utils.NormalizeTxHash(txHash)]
	return exists
}

// Len returns the current feed size
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.rolls)
}

// GetStats returns feed statistics
func (f *Feed) GetStats() *Stats {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return &Stats{
		Size:      len(f.rolls),
		Cap:       f.cap,
		Added:     f.added,
		Dropped:   f.dropped,
		UpdatedAt: f.updatedAt,
	}
}
