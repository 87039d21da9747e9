// File: internal/models/roll_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGameTypeValid(t *testing.T) {
	assert.True(t, GameDice.Valid())
	assert.True(t, GameCoinflip.Valid())
	assert.False(t, GameType("poker").Valid())
	assert.False(t, GameType("").Valid())
}

func TestRollFilterMatches(t *testing.T) {
	roll := &Roll{
		Game:   GameDice,
		Player: "0x1111111111111111111111111111111111111111",
	}

	var nilFilter *RollFilter
	assert.True(t, nilFilter.Matches(roll), "nil filter matches everything")
	assert.True(t, (&RollFilter{}).Matches(roll), "empty filter matches everything")

	dice := GameDice
	flip := GameCoinflip
	assert.True(t, (&RollFilter{Game: &dice}).Matches(roll))
	assert.False(t, (&RollFilter{Game: &flip}).Matches(roll))

	player := "0x1111111111111111111111111111111111111111"
	other := "0x2222222222222222222222222222222222222222"
	assert.True(t, (&RollFilter{Player: &player}).Matches(roll))
	assert.False(t, (&RollFilter{Player: &other}).Matches(roll))

	assert.True(t, (&RollFilter{Game: &dice, Player: &player}).Matches(roll))
	assert.False(t, (&RollFilter{Game: &flip, Player: &player}).Matches(roll))
}
