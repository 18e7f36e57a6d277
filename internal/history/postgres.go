package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"unigame/internal/model"
)

// PostgresStore keeps the activity log in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// RecordAction inserts one confirmed mutation. Replays of the same
// record id are ignored.
func (s *PostgresStore) RecordAction(ctx context.Context, record model.ActionRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO actions (
			id, account, action, resource, resource_id, amount, tx_hash, occurred_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO NOTHING
	`,
		record.ID,
		record.Account,
		record.Action,
		string(record.Resource),
		int64(record.ResourceID),
		record.Amount,
		record.TxHash,
		time.Unix(record.At, 0).UTC(),
	)
	return err
}

// RecordEvents inserts a batch of decoded events, keyed by their log
// position so reprocessed ranges do not duplicate rows.
func (s *PostgresStore) RecordEvents(ctx context.Context, events []model.ChainEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		batch.Queue(`
			INSERT INTO chain_events (
				chain_id, block_number, tx_hash, log_index, name,
				resource, resource_id, account, amount, occurred_at, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
			ON CONFLICT (chain_id, block_number, tx_hash, log_index) DO NOTHING
		`,
			int64(event.ChainID),
			int64(event.BlockNumber),
			event.TxHash,
			int64(event.LogIndex),
			event.Name,
			string(event.Resource),
			int64(event.ResourceID),
			event.Account,
			event.Amount,
			time.Unix(event.Timestamp, 0).UTC(),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ActionsByAccount returns the most recent mutations for an account.
func (s *PostgresStore) ActionsByAccount(ctx context.Context, account string, limit int) ([]model.ActionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, account, action, resource, resource_id, amount, tx_hash, occurred_at
		FROM actions
		WHERE account = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`, account, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.ActionRecord
	for rows.Next() {
		var record model.ActionRecord
		var resource string
		var resourceID int64
		var occurredAt time.Time
		if err := rows.Scan(
			&record.ID,
			&record.Account,
			&record.Action,
			&resource,
			&resourceID,
			&record.Amount,
			&record.TxHash,
			&occurredAt,
		); err != nil {
			return nil, err
		}
		record.Resource = model.Resource(resource)
		record.ResourceID = uint64(resourceID)
		record.At = occurredAt.Unix()
		records = append(records, record)
	}
	return records, rows.Err()
}

// RecentEvents returns the latest decoded events across all resources.
func (s *PostgresStore) RecentEvents(ctx context.Context, limit int) ([]model.ChainEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT chain_id, block_number, tx_hash, log_index, name,
			resource, resource_id, account, amount, occurred_at
		FROM chain_events
		ORDER BY block_number DESC, log_index DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.ChainEvent
	for rows.Next() {
		var event model.ChainEvent
		var chainID, blockNumber, logIndex, resourceID int64
		var resource string
		var occurredAt time.Time
		if err := rows.Scan(
			&chainID,
			&blockNumber,
			&event.TxHash,
			&logIndex,
			&event.Name,
			&resource,
			&resourceID,
			&event.Account,
			&event.Amount,
			&occurredAt,
		); err != nil {
			return nil, err
		}
		event.ChainID = uint64(chainID)
		event.BlockNumber = uint64(blockNumber)
		event.LogIndex = uint64(logIndex)
		event.Resource = model.Resource(resource)
		event.ResourceID = uint64(resourceID)
		event.Timestamp = occurredAt.Unix()
		events = append(events, event)
	}
	return events, rows.Err()
}

// Totals counts stored actions and events.
func (s *PostgresStore) Totals(ctx context.Context) (Totals, error) {
	var totals Totals
	row := s.pool.QueryRow(ctx, `SELECT count(*) FROM actions`)
	if err := row.Scan(&totals.Actions); err != nil {
		return Totals{}, err
	}
	row = s.pool.QueryRow(ctx, `SELECT count(*) FROM chain_events`)
	if err := row.Scan(&totals.Events); err != nil {
		return Totals{}, err
	}
	return totals, nil
}
