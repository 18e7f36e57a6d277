// Package history persists confirmed mutations and decoded contract
// events so the client can show per-account activity without walking
// the chain again.
package history

import (
	"context"

	"unigame/internal/model"
)

// Totals summarizes stored activity for the stats view.
type Totals struct {
	Actions int64 `json:"actions"`
	Events  int64 `json:"events"`
}

// Store is the persistence surface for the activity log.
type Store interface {
	RecordAction(ctx context.Context, record model.ActionRecord) error
	RecordEvents(ctx context.Context, events []model.ChainEvent) error
	ActionsByAccount(ctx context.Context, account string, limit int) ([]model.ActionRecord, error)
	RecentEvents(ctx context.Context, limit int) ([]model.ChainEvent, error)
	Totals(ctx context.Context) (Totals, error)
	Close()
}

// Nop discards everything. Used when no Postgres DSN is configured.
type Nop struct{}

func (Nop) RecordAction(context.Context, model.ActionRecord) error { return nil }

func (Nop) RecordEvents(context.Context, []model.ChainEvent) error { return nil }

func (Nop) ActionsByAccount(context.Context, string, int) ([]model.ActionRecord, error) {
	return nil, nil
}

func (Nop) RecentEvents(context.Context, int) ([]model.ChainEvent, error) { return nil, nil }

func (Nop) Totals(context.Context) (Totals, error) { return Totals{}, nil }

func (Nop) Close() {}
