package model

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BetState mirrors the contract's bet state enum.
type BetState uint8

const (
	BetPending BetState = iota
	BetAccepted
	BetResolved
	BetCancelled
)

func (s BetState) String() string {
	switch s {
	case BetPending:
		return "pending"
	case BetAccepted:
		return "accepted"
	case BetResolved:
		return "resolved"
	case BetCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Bet is the decoded view of one on-chain bet. Ids are assigned by the
// contract starting from 1.
type Bet struct {
	ID               uint64         `json:"id"`
	Creator          common.Address `json:"creator"`
	Description      string         `json:"description"`
	EventID          [32]byte       `json:"event_id"`
	Amount           *big.Int       `json:"amount"`
	Challenger       common.Address `json:"challenger"`
	ChallengerAmount *big.Int       `json:"challenger_amount"`
	State            BetState       `json:"state"`
	Winner           common.Address `json:"winner"`
	Deadline         int64          `json:"deadline"`
}

// HasChallenger reports whether the bet has been matched.
func (b Bet) HasChallenger() bool {
	return b.Challenger != (common.Address{})
}

// IsOpen reports whether the bet can still be accepted.
func (b Bet) IsOpen() bool {
	return b.State == BetPending && !b.HasChallenger()
}

// Validate checks the challenger/state/winner consistency invariants.
func (b Bet) Validate() error {
	if b.ID == 0 {
		return fmt.Errorf("bet id must be >= 1")
	}
	if (b.State == BetPending) == b.HasChallenger() {
		return fmt.Errorf("bet %d: state %s inconsistent with challenger", b.ID, b.State)
	}
	hasWinner := b.Winner != (common.Address{})
	if hasWinner != (b.State == BetResolved) {
		return fmt.Errorf("bet %d: winner set iff resolved violated", b.ID)
	}
	return nil
}
