package model

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// UserStake is one account's position in a stake pool.
type UserStake struct {
	Amount    *big.Int `json:"amount"`
	StartTime int64    `json:"start_time"`
	Active    bool     `json:"active"`
}

// WithdrawableAt returns the unix time after which the stake can be
// withdrawn from a pool with the given lock duration.
func (u UserStake) WithdrawableAt(duration int64) int64 {
	return u.StartTime + duration
}

// StakePool is the decoded view of one on-chain stake pool. Ids are
// assigned by the contract starting from 1. APY is in basis points.
type StakePool struct {
	ID          uint64         `json:"id"`
	Name        string         `json:"name"`
	Creator     common.Address `json:"creator"`
	MaxStake    *big.Int       `json:"max_stake"`
	TotalStaked *big.Int       `json:"total_staked"`
	APY         uint64         `json:"apy"`
	Duration    int64          `json:"duration"`
	StartTime   int64          `json:"start_time"`
	Active      bool           `json:"active"`
	UserStake   *UserStake     `json:"user_stake,omitempty"`
}

// Remaining returns the capacity left in the pool.
func (p StakePool) Remaining() *big.Int {
	if p.MaxStake == nil {
		return new(big.Int)
	}
	if p.TotalStaked == nil {
		return new(big.Int).Set(p.MaxStake)
	}
	rem := new(big.Int).Sub(p.MaxStake, p.TotalStaked)
	if rem.Sign() < 0 {
		return new(big.Int)
	}
	return rem
}

// Validate checks the capacity invariant.
func (p StakePool) Validate() error {
	if p.ID == 0 {
		return fmt.Errorf("stake pool id must be >= 1")
	}
	if p.MaxStake != nil && p.TotalStaked != nil && p.TotalStaked.Cmp(p.MaxStake) > 0 {
		return fmt.Errorf("stake pool %d: total staked exceeds max stake", p.ID)
	}
	return nil
}
