// File: internal/rolls/abi.go
package rolls

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/degenlabs/rollfeed/internal/models"
	"github.com/degenlabs/rollfeed/pkg/utils"
)

// Both game contracts emit the same Roll event shape; only the contract
// address distinguishes dice from coinflip.
const rollEventName = "Roll"

const rollEventABI = `[{
	"anonymous": false,
	"inputs": [
		{"indexed": true,  "name": "player",  "type": "address"},
		{"indexed": false, "name": "amount",  "type": "uint256"},
		{"indexed": false, "name": "choice",  "type": "uint256"},
		{"indexed": false, "name": "outcome", "type": "uint256"},
		{"indexed": false, "name": "win",     "type": "bool"}
	],
	"name": "Roll",
	"type": "event"
}]`

var (
	rollABI abi.ABI

	// RollEventTopic is keccak256("Roll(address,uint256,uint256,uint256,bool)")
	RollEventTopic common.Hash
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(rollEventABI))
	if err != nil {
		panic(fmt.Sprintf("invalid Roll event ABI: %v", err))
	}
	rollABI = parsed
	RollEventTopic = crypto.Keccak256Hash([]byte("Roll(address,uint256,uint256,uint256,bool)"))
}

// GameContract binds a game type to its deployed contract address
type GameContract struct {
	Game    models.GameType `json:"game"`
	Address common.Address  `json:"address"`
}

// DecodeRollLog decodes a raw log into a Roll. The timestamp is attached
// later by a separate block lookup.
func DecodeRollLog(log *types.Log, game models.GameType) (*models.Roll, error) {
	if len(log.Topics) < 2 {
		return nil, utils.NewAppError(utils.ErrCodeDecode, "Log has too few topics",
			fmt.Sprintf("expected 2, got %d", len(log.Topics)))
	}
	if log.Topics[0] != RollEventTopic {
		return nil, utils.NewAppError(utils.ErrCodeDecode, "Log topic is not a Roll event",
			log.Topics[0].Hex())
	}

	values, err := rollABI.Unpack(rollEventName, log.Data)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDecode, "Failed to unpack Roll event data", err.Error())
	}
	if len(values) != 4 {
		return nil, utils.NewAppError(utils.ErrCodeDecode, "Unexpected Roll event data shape",
			fmt.Sprintf("expected 4 values, got %d", len(values)))
	}

	amount, ok := values[0].(*big.Int)
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeDecode, "Roll amount is not uint256", "")
	}
	choice, ok := values[1].(*big.Int)
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeDecode, "Roll choice is not uint256", "")
	}
	outcome, ok := values[2].(*big.Int)
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeDecode, "Roll outcome is not uint256", "")
	}
	win, ok := values[3].(bool)
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeDecode, "Roll win flag is not bool", "")
	}

	player := common.BytesToAddress(log.Topics[1].Bytes())

	return &models.Roll{
		Game:        game,
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
		TxHash:      utils.NormalizeTxHash(log.TxHash.Hex()),
		Player:      utils.NormalizeAddress(player.Hex()),
		Amount:      amount.String(),
		Choice:      choice.Uint64(),
		Outcome:     outcome.Uint64(),
		Win:         win,
	}, nil
}

// PackRollEventData ABI-encodes the non-indexed Roll fields. Used by tests
// to build synthetic logs.
func PackRollEventData(amount, choice, outcome *big.Int, win bool) ([]byte, error) {
	return rollABI.Events[rollEventName].Inputs.NonIndexed().Pack(amount, choice, outcome, win)
}
