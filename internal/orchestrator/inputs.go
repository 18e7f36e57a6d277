package orchestrator

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"unigame/internal/units"
)

// Mutation inputs carry user-facing units: decimal display-currency
// strings, percentages and day counts. Conversion to on-chain encoding
// happens after validation, never at call sites.

// CreateBetInput opens a bet wagering Amount.
type CreateBetInput struct {
	Description string `json:"description" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	// DeadlineDays defaults to 7 when zero.
	DeadlineDays uint64 `json:"deadline_days" validate:"lte=365"`
}

// AcceptBetInput matches an open bet with Amount.
type AcceptBetInput struct {
	BetID  uint64 `json:"bet_id" validate:"required"`
	Amount string `json:"amount" validate:"required"`
}

// ResolveBetInput settles a bet in favor of Winner.
type ResolveBetInput struct {
	BetID  uint64 `json:"bet_id" validate:"required"`
	Winner string `json:"winner" validate:"required"`
}

// CreatePollInput opens a poll running for DurationDays.
type CreatePollInput struct {
	Question     string   `json:"question" validate:"required"`
	Options      []string `json:"options" validate:"required,min=2,max=10,dive,required"`
	DurationDays uint64   `json:"duration_days" validate:"required,lte=365"`
}

// VoteInput casts a vote. Poll ids are 0-based.
type VoteInput struct {
	PollID      uint64 `json:"poll_id"`
	OptionIndex uint64 `json:"option_index"`
}

// CreateRaffleInput opens a raffle with a stored ticket price.
type CreateRaffleInput struct {
	TicketPrice  string `json:"ticket_price" validate:"required"`
	DurationDays uint64 `json:"duration_days" validate:"required,lte=365"`
}

// BuyTicketsInput purchases Count tickets; the attached value is the
// raffle's current price times Count.
type BuyTicketsInput struct {
	RaffleID uint64 `json:"raffle_id"`
	Count    uint64 `json:"count" validate:"required"`
}

// CreateStakePoolInput opens a stake pool. APYPercent is a display
// percentage, converted to basis points on encoding.
type CreateStakePoolInput struct {
	Name         string  `json:"name" validate:"required"`
	MaxStake     string  `json:"max_stake" validate:"required"`
	APYPercent   float64 `json:"apy_percent" validate:"required,gt=0,lte=100"`
	DurationDays uint64  `json:"duration_days" validate:"required,lte=365"`
}

// StakeInput deposits Amount into a pool.
type StakeInput struct {
	PoolID uint64 `json:"pool_id" validate:"required"`
	Amount string `json:"amount" validate:"required"`
}

// UnstakeInput withdraws the caller's position.
type UnstakeInput struct {
	PoolID uint64 `json:"pool_id" validate:"required"`
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// parseAmount parses a decimal display amount and requires it to be
// strictly positive.
func parseAmount(field, amount string) (*big.Int, error) {
	value, err := units.ToSmallestUnit(amount)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("%s must be greater than 0", field)
	}
	return value, nil
}

func parseAddress(field, address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("%s is not a valid address: %s", field, address)
	}
	return common.HexToAddress(address), nil
}
