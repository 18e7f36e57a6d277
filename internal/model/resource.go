package model

// Resource names one of the four on-chain collection kinds.
type Resource string

const (
	ResourceBets    Resource = "bets"
	ResourcePolls   Resource = "polls"
	ResourceRaffles Resource = "raffles"
	ResourceStakes  Resource = "stakes"
)

// Resources lists every resource kind in a stable order.
func Resources() []Resource {
	return []Resource{ResourceBets, ResourcePolls, ResourceRaffles, ResourceStakes}
}

// FirstID is the lowest valid id for the resource. Bets and stake
// pools are 1-based on the contract, polls and raffles 0-based.
func (r Resource) FirstID() uint64 {
	switch r {
	case ResourceBets, ResourceStakes:
		return 1
	default:
		return 0
	}
}
