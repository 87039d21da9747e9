// File: internal/rolls/abi_test.go
package rolls

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/degenlabs/rollfeed/internal/models"
	"github.com/degenlabs/rollfeed/pkg/utils"
)

func makeRollLog(t *testing.T, player common.Address, amount, choice, outcome *big.Int, win bool) *types.Log {
	t.Helper()

	data, err := PackRollEventData(amount, choice, outcome, win)
	require.NoError(t, err, "Failed to pack Roll event data")

	return &types.Log{
		Address: common.HexToAddress("0x000000000000000000000000000000000000d1ce"),
		Topics: []common.Hash{
			RollEventTopic,
			common.BytesToHash(player.Bytes()),
		},
		Data:        data,
		BlockNumber: 12345,
		TxHash:      common.HexToHash("0xabc123"),
		Index:       7,
	}
}

func TestRollEventTopic(t *testing.T) {
	expected := utils.GetEventSignature("Roll(address,uint256,uint256,uint256,bool)")
	assert.Equal(t, expected, RollEventTopic.Hex())
}

func TestDecodeRollLog(t *testing.T) {
	player := common.HexToAddress("0x1234567890AbcdEF1234567890aBcdef12345678")
	amount := new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18))

	lg := makeRollLog(t, player, amount, big.NewInt(4), big.NewInt(4), true)

	roll, err := DecodeRollLog(lg, models.GameDice)
	require.NoError(t, err, "Failed to decode Roll log")

	assert.Equal(t, models.GameDice, roll.Game)
	assert.Equal(t, uint64(12345), roll.BlockNumber)
	assert.Equal(t, uint(7), roll.LogIndex)
	assert.Equal(t, utils.NormalizeAddress(player.Hex()), roll.Player)
	assert.Equal(t, amount.String(), roll.Amount)
	assert.Equal(t, uint64(4), roll.Choice)
	assert.Equal(t, uint64(4), roll.Outcome)
	assert.True(t, roll.Win)
	assert.Equal(t, utils.NormalizeTxHash(lg.TxHash.Hex()), roll.TxHash)
	assert.True(t, roll.Timestamp.IsZero(), "decode must not set a timestamp")
}

func TestDecodeRollLogLoss(t *testing.T) {
	player := common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")
	lg := makeRollLog(t, player, big.NewInt(1e18), big.NewInt(1), big.NewInt(6), false)

	roll, err := DecodeRollLog(lg, models.GameCoinflip)
	require.NoError(t, err)

	assert.Equal(t, models.GameCoinflip, roll.Game)
	assert.Equal(t, uint64(1), roll.Choice)
	assert.Equal(t, uint64(6), roll.Outcome)
	assert.False(t, roll.Win)
}

func TestDecodeRollLogWrongTopic(t *testing.T) {
	lg := &types.Log{
		Topics: []common.Hash{
			common.HexToHash("0xdeadbeef"),
			common.HexToHash("0x01"),
		},
	}

	_, err := DecodeRollLog(lg, models.GameDice)
	require.Error(t, err, "foreign event topic must be rejected")
}

func TestDecodeRollLogMissingTopics(t *testing.T) {
	lg := &types.Log{
		Topics: []common.Hash{RollEventTopic},
	}

	_, err := DecodeRollLog(lg, models.GameDice)
	require.Error(t, err, "log without indexed player must be rejected")
}

func TestDecodeRollLogMalformedData(t *testing.T) {
	lg := &types.Log{
		Topics: []common.Hash{
			RollEventTopic,
			common.HexToHash("0x01"),
		},
		Data: []byte{0x01, 0x02},
	}

	_, err := DecodeRollLog(lg, models.GameDice)
	require.Error(t, err, "truncated event data must be rejected")
}
