package model

// ChainEvent is a decoded contract event, normalized for the watcher
// and the history store.
type ChainEvent struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	TxHash      string   `json:"tx_hash"`
	LogIndex    uint64   `json:"log_index"`
	Name        string   `json:"name"`
	Resource    Resource `json:"resource"`
	ResourceID  uint64   `json:"resource_id"`
	Account     string   `json:"account,omitempty"`
	Amount      string   `json:"amount,omitempty"`
	Timestamp   int64    `json:"timestamp"`
}

// ActionRecord is one confirmed client-side mutation, persisted for
// the per-account history view.
type ActionRecord struct {
	ID         string   `json:"id"`
	Account    string   `json:"account"`
	Action     string   `json:"action"`
	Resource   Resource `json:"resource"`
	ResourceID uint64   `json:"resource_id"`
	Amount     string   `json:"amount,omitempty"`
	TxHash     string   `json:"tx_hash"`
	At         int64    `json:"at"`
}
