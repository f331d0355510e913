package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campaignScope/internal/model"
	"campaignScope/internal/storage"
)

// Store provides Postgres persistence for the campaign replica.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pg dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return classifyError(err)
	}
	return nil
}

// Upsert inserts record unless its address is already present.
func (s *Store) Upsert(ctx context.Context, record model.CampaignRecord) (storage.UpsertResult, error) {
	if record.Address == "" {
		return 0, fmt.Errorf("%w: empty address", storage.ErrIntegrity)
	}

	var observedAt *time.Time
	if !record.ObservedAt.IsZero() {
		ts := record.ObservedAt.UTC()
		observedAt = &ts
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO campaigns (
			address, creator, goal, deadline, origin_tx_hash, block_number, log_index, observed_at
		) VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6, $7, COALESCE($8, now()))
		ON CONFLICT (address) DO NOTHING
		RETURNING id
	`,
		record.Address,
		record.Creator,
		model.BigString(record.Goal),
		model.BigString(record.Deadline),
		record.OriginTxHash,
		int64(record.BlockNumber),
		int64(record.LogIndex),
		observedAt,
	).Scan(&id)
	if err == nil {
		return storage.Inserted, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.AlreadyExists, nil
	}
	if isDuplicate(err) {
		return storage.AlreadyExists, nil
	}
	return 0, classifyError(err)
}

// List returns all campaigns, newest first.
func (s *Store) List(ctx context.Context) ([]model.CampaignRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, creator, goal::text, deadline::text, origin_tx_hash, block_number, log_index, observed_at
		FROM campaigns
		ORDER BY observed_at DESC, id DESC
	`)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	out := make([]model.CampaignRecord, 0)
	for rows.Next() {
		var (
			record             model.CampaignRecord
			goal, deadline     string
			blockNum, logIndex int64
		)
		if err := rows.Scan(
			&record.Address,
			&record.Creator,
			&goal,
			&deadline,
			&record.OriginTxHash,
			&blockNum,
			&logIndex,
			&record.ObservedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan campaign: %v", storage.ErrWriteFault, err)
		}
		if record.Goal, err = model.ParseBig(goal); err != nil {
			return nil, fmt.Errorf("%w: campaign %s goal: %v", storage.ErrIntegrity, record.Address, err)
		}
		if record.Deadline, err = model.ParseBig(deadline); err != nil {
			return nil, fmt.Errorf("%w: campaign %s deadline: %v", storage.ErrIntegrity, record.Address, err)
		}
		record.BlockNumber = uint64(blockNum)
		record.LogIndex = uint64(logIndex)
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err)
	}
	return out, nil
}

// LoadState returns the checkpoint block stored under name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_block FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, classifyError(err)
	}
	return uint64(block), true, nil
}

// SaveState upserts the checkpoint block for name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_block = EXCLUDED.last_block, updated_at = now()
	`, name, int64(block))
	if err != nil {
		return classifyError(err)
	}
	return nil
}
