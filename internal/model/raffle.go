package model

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Raffle is the decoded view of one on-chain raffle. Ids are assigned
// by the contract starting from 0.
type Raffle struct {
	ID          uint64         `json:"id"`
	Creator     common.Address `json:"creator"`
	TicketPrice *big.Int       `json:"ticket_price"`
	TotalPool   *big.Int       `json:"total_pool"`
	EndTime     int64          `json:"end_time"`
	Active      bool           `json:"active"`
	Winner      common.Address `json:"winner"`
}

// TicketsSold derives the number of tickets sold from the accumulated
// pool. Returns 0 when the ticket price is zero.
func (r Raffle) TicketsSold() uint64 {
	if r.TicketPrice == nil || r.TicketPrice.Sign() == 0 || r.TotalPool == nil {
		return 0
	}
	return new(big.Int).Div(r.TotalPool, r.TicketPrice).Uint64()
}

// HasWinner reports whether the raffle has been drawn.
func (r Raffle) HasWinner() bool {
	return r.Winner != (common.Address{})
}

// Validate checks that the pool is a whole multiple of the ticket
// price while the raffle is active.
func (r Raffle) Validate() error {
	if r.TotalPool != nil && r.TotalPool.Sign() < 0 {
		return fmt.Errorf("raffle %d: negative pool", r.ID)
	}
	if r.Active && r.TicketPrice != nil && r.TicketPrice.Sign() > 0 && r.TotalPool != nil {
		rem := new(big.Int).Mod(r.TotalPool, r.TicketPrice)
		if rem.Sign() != 0 {
			return fmt.Errorf("raffle %d: pool is not a multiple of ticket price", r.ID)
		}
	}
	return nil
}
