package model

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PollOption is one choice of a poll with its running vote count.
type PollOption struct {
	Text  string   `json:"text"`
	Votes *big.Int `json:"votes"`
}

// Poll is the decoded view of one on-chain poll. Ids are assigned by
// the contract starting from 0.
type Poll struct {
	ID       uint64         `json:"id"`
	Creator  common.Address `json:"creator"`
	Question string         `json:"question"`
	Options  []PollOption   `json:"options"`
	EndTime  int64          `json:"end_time"`
	Active   bool           `json:"active"`
}

// TotalVotes sums the per-option counts.
func (p Poll) TotalVotes() *big.Int {
	total := new(big.Int)
	for _, opt := range p.Options {
		if opt.Votes != nil {
			total.Add(total, opt.Votes)
		}
	}
	return total
}

// VotePercentage returns the share of votes for the option at index,
// as a percentage. A poll with no votes reports 0 for every option.
func (p Poll) VotePercentage(index int) float64 {
	if index < 0 || index >= len(p.Options) {
		return 0
	}
	total := p.TotalVotes()
	if total.Sign() == 0 {
		return 0
	}
	votes := p.Options[index].Votes
	if votes == nil || votes.Sign() == 0 {
		return 0
	}
	ratio := new(big.Rat).SetFrac(votes, total)
	pct, _ := new(big.Rat).Mul(ratio, big.NewRat(100, 1)).Float64()
	return pct
}

// Validate checks the option shape.
func (p Poll) Validate() error {
	if len(p.Options) < 2 {
		return fmt.Errorf("poll %d: fewer than two options", p.ID)
	}
	for i, opt := range p.Options {
		if opt.Votes != nil && opt.Votes.Sign() < 0 {
			return fmt.Errorf("poll %d: negative vote count on option %d", p.ID, i)
		}
	}
	return nil
}
