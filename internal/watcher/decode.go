package watcher

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"unigame/internal/model"
	"unigame/internal/unigame"
)

// eventTarget maps a contract event onto the collection it touches.
type eventTarget struct {
	resource model.Resource
	// hasAmount marks events whose first non-indexed argument is a
	// currency amount worth carrying into the normalized event.
	hasAmount bool
}

var eventTargets = map[string]eventTarget{
	"BetCreated":       {model.ResourceBets, true},
	"BetAccepted":      {model.ResourceBets, true},
	"BetResolved":      {model.ResourceBets, false},
	"PollCreated":      {model.ResourcePolls, false},
	"VoteCast":         {model.ResourcePolls, false},
	"RaffleCreated":    {model.ResourceRaffles, true},
	"TicketsPurchased": {model.ResourceRaffles, false},
	"RaffleDrawn":      {model.ResourceRaffles, false},
	"StakePoolCreated": {model.ResourceStakes, true},
	"Staked":           {model.ResourceStakes, true},
	"Unstaked":         {model.ResourceStakes, true},
}

// Decoder turns raw contract logs into normalized chain events. Every
// UniGame event indexes the resource id as topic 1 and the acting
// account as topic 2 (except BetResolved/RaffleDrawn, where topic 2 is
// the winner).
type Decoder struct {
	contractABI abi.ABI
	topicToName map[common.Hash]string
	chainID     uint64
}

func NewDecoder(chainID uint64) (*Decoder, error) {
	contractABI, err := unigame.ContractABI()
	if err != nil {
		return nil, err
	}

	topicToName := make(map[common.Hash]string, len(eventTargets))
	for name := range eventTargets {
		event, ok := contractABI.Events[name]
		if !ok {
			return nil, fmt.Errorf("event %s not in ABI", name)
		}
		topicToName[event.ID] = name
	}

	return &Decoder{
		contractABI: contractABI,
		topicToName: topicToName,
		chainID:     chainID,
	}, nil
}

// CanDecode checks whether the log's topic0 belongs to a known event.
func (d *Decoder) CanDecode(log types.Log) bool {
	if len(log.Topics) == 0 {
		return false
	}
	_, ok := d.topicToName[log.Topics[0]]
	return ok
}

// Decode converts one log into a ChainEvent.
func (d *Decoder) Decode(log types.Log, timestamp uint64) (model.ChainEvent, error) {
	if len(log.Topics) < 2 {
		return model.ChainEvent{}, fmt.Errorf("log %s:%d: missing indexed topics", log.TxHash.Hex(), log.Index)
	}
	name, ok := d.topicToName[log.Topics[0]]
	if !ok {
		return model.ChainEvent{}, fmt.Errorf("unsupported topic0: %s", log.Topics[0].Hex())
	}
	target := eventTargets[name]

	id := new(big.Int).SetBytes(log.Topics[1].Bytes())
	if !id.IsUint64() {
		return model.ChainEvent{}, fmt.Errorf("%s: resource id does not fit in uint64", name)
	}

	event := model.ChainEvent{
		ChainID:     d.chainID,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		Name:        name,
		Resource:    target.resource,
		ResourceID:  id.Uint64(),
		Timestamp:   int64(timestamp),
	}

	if len(log.Topics) >= 3 {
		event.Account = common.BytesToAddress(log.Topics[2].Bytes()).Hex()
	}

	if target.hasAmount && len(log.Data) >= 32 {
		values, err := d.contractABI.Events[name].Inputs.NonIndexed().Unpack(log.Data)
		if err != nil {
			return model.ChainEvent{}, fmt.Errorf("unpack %s data: %w", name, err)
		}
		if len(values) > 0 {
			if amount, ok := values[0].(*big.Int); ok {
				event.Amount = amount.String()
			}
		}
	}

	return event, nil
}
