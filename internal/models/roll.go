package models

import (
	"time"
)

// GameType identifies which game contract emitted a roll
type GameType string

const (
	GameDice     GameType = "dice"
	GameCoinflip GameType = "coinflip"
)

// Valid reports whether the game type is one of the two known games
func (g GameType) Valid() bool {
	return g == GameDice || g == GameCoinflip
}

// Roll represents a single decoded bet event. Rolls are immutable once
// constructed; the feed deduplicates them by transaction hash.
type Roll struct {
	Game        GameType  `json:"game"`
	BlockNumber uint64    `json:"block_number"`
	LogIndex    uint      `json:"log_index"`
	TxHash      string    `json:"tx_hash"`
	Player      string    `json:"player"`
	Amount      string    `json:"amount"` // wagered amount in wei, decimal string
	Choice      uint64    `json:"choice"`
	Outcome     uint64    `json:"outcome"`
	Win         bool      `json:"win"`
	Timestamp   time.Time `json:"timestamp"`
}

// RollFilter narrows roll queries on the HTTP API
type RollFilter struct {
	Game   *GameType `json:"game,omitempty"`
	Player *string   `json:"player,omitempty"`
	Limit  int       `json:"limit,omitempty"`
}

// Matches reports whether a roll passes the filter
func (f *RollFilter) Matches(roll *Roll) bool {
	if f == nil {
		return true
	}
	if f.Game != nil && roll.Game != *f.Game {
		return false
	}
	if f.Player != nil && roll.Player != *f.Player {
		return false
	}
	return true
}
