// Package postgres persists entity deltas as JSONB documents, one row per entity, and the cursor of the
// last applied block in the same transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/streamingfast/uniswap-v2-indexer/sink"
	"github.com/streamingfast/uniswap-v2-indexer/state"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	entity       TEXT   NOT NULL,
	id           TEXT   NOT NULL,
	block_number BIGINT NOT NULL,
	data         JSONB  NOT NULL,
	PRIMARY KEY (entity, id)
);

CREATE TABLE IF NOT EXISTS cursors (
	name            TEXT        PRIMARY KEY,
	block_number    BIGINT      NOT NULL,
	block_hash      TEXT        NOT NULL,
	block_timestamp TIMESTAMPTZ NOT NULL
);
`

const (
	upsertEntityQuery = `
INSERT INTO entities (entity, id, block_number, data) VALUES ($1, $2, $3, $4)
ON CONFLICT (entity, id) DO UPDATE SET block_number = EXCLUDED.block_number, data = EXCLUDED.data`

	deleteEntityQuery = `DELETE FROM entities WHERE entity = $1 AND id = $2`

	upsertCursorQuery = `
INSERT INTO cursors (name, block_number, block_hash, block_timestamp) VALUES ($1, $2, $3, $4)
ON CONFLICT (name) DO UPDATE SET block_number = EXCLUDED.block_number, block_hash = EXCLUDED.block_hash, block_timestamp = EXCLUDED.block_timestamp`
)

type Sink struct {
	pool   *pgxpool.Pool
	name   string
	logger *zap.Logger
}

type Option func(s *Sink)

// WithName keys the cursor row, letting several indexers share a database.
func WithName(name string) Option {
	return func(s *Sink) { s.name = name }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Sink) { s.logger = logger }
}

func New(ctx context.Context, dsn string, opts ...Option) (*Sink, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s := &Sink{pool: pool, name: "default", logger: zlog}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Info("connected to postgres",
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.String("database", poolConfig.ConnConfig.Database),
		zap.String("cursor", s.name),
	)
	return s, nil
}

// Apply writes the block's deltas and moves the cursor atomically.
func (s *Sink) Apply(ctx context.Context, cursor sink.Cursor, deltas []*state.Delta) error {
	batch := &pgx.Batch{}
	for _, delta := range deltas {
		if delta.Op == state.OpDelete {
			batch.Queue(deleteEntityQuery, delta.Table, delta.ID)
			continue
		}

		data, err := sink.Encode(delta.NewValue)
		if err != nil {
			return err
		}
		batch.Queue(upsertEntityQuery, delta.Table, delta.ID, int64(cursor.BlockNumber), data)
	}
	batch.Queue(upsertCursorQuery, s.name, int64(cursor.BlockNumber), cursor.BlockHash, cursor.Timestamp)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("writing block %d: %w", cursor.BlockNumber, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing block %d: %w", cursor.BlockNumber, err)
	}

	s.logger.Debug("block persisted", zap.Uint64("block_num", cursor.BlockNumber), zap.Int("deltas", len(deltas)))
	return nil
}

// Restore loads every persisted entity into the store. The cursor is nil on an empty database.
func (s *Sink) Restore(ctx context.Context, store *state.Store) (*sink.Cursor, error) {
	cursor := &sink.Cursor{}
	err := s.pool.QueryRow(ctx,
		`SELECT block_number, block_hash, block_timestamp FROM cursors WHERE name = $1`, s.name,
	).Scan(&cursor.BlockNumber, &cursor.BlockHash, &cursor.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cursor: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT entity, id, data FROM entities ORDER BY block_number, entity, id`)
	if err != nil {
		return nil, fmt.Errorf("reading entities: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var table, id string
		var data []byte
		if err := rows.Scan(&table, &id, &data); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}

		ent, err := sink.Decode(table, id, data)
		if err != nil {
			return nil, err
		}
		store.Restore(ent)
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading entities: %w", err)
	}

	s.logger.Info("store restored from postgres",
		zap.Int("entities", count),
		zap.Uint64("block_num", cursor.BlockNumber),
	)
	return cursor, nil
}

func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}
