package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/edmap/internal/db"
	"github.com/sells-group/edmap/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"latest_snapshot": `SELECT id, name, row_count, created_at FROM snapshots WHERE name = $1 ORDER BY created_at DESC LIMIT 1`,
	"snapshot_rows":   `SELECT code, name, cells FROM snapshot_rows WHERE snapshot_id = $1 ORDER BY position`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS snapshot_rows (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	code        TEXT NOT NULL,
	name        TEXT NOT NULL,
	cells       JSONB NOT NULL,
	PRIMARY KEY (snapshot_id, position)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_name_created ON snapshots(name, created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var snapshotRowColumns = []string{"snapshot_id", "position", "code", "name", "cells"}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, name string, rows []model.RegionRecord) (*Snapshot, error) {
	if err := validateSave(name, rows); err != nil {
		return nil, err
	}
	snap := &Snapshot{
		ID:        uuid.New().String(),
		Name:      name,
		RowCount:  len(rows),
		CreatedAt: time.Now().UTC(),
	}

	copyRows := make([][]any, len(rows))
	for i, r := range rows {
		cells, err := json.Marshal(r.Cells)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: marshal cells for %s", r.Code)
		}
		copyRows[i] = []any{snap.ID, i, r.Code, r.Name, cells}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin snapshot")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO snapshots (id, name, row_count, created_at) VALUES ($1, $2, $3, $4)`,
		snap.ID, snap.Name, snap.RowCount, snap.CreatedAt,
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: insert snapshot %s", name)
	}
	if _, err := db.CopyFrom(ctx, tx, "snapshot_rows", snapshotRowColumns, copyRows); err != nil {
		return nil, eris.Wrapf(err, "postgres: copy rows for %s", name)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit snapshot")
	}
	return snap, nil
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context, name string) (*Snapshot, error) {
	var snap Snapshot
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, row_count, created_at FROM snapshots WHERE name = $1 ORDER BY created_at DESC LIMIT 1`,
		name,
	).Scan(&snap.ID, &snap.Name, &snap.RowCount, &snap.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: snapshot %s", name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest snapshot %s", name)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT code, name, cells FROM snapshot_rows WHERE snapshot_id = $1 ORDER BY position`,
		snap.ID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query rows for %s", snap.ID)
	}
	defer rows.Close()

	snap.Rows = make([]model.RegionRecord, 0, snap.RowCount)
	for rows.Next() {
		var rec model.RegionRecord
		var cells []byte
		if err := rows.Scan(&rec.Code, &rec.Name, &cells); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot row")
		}
		if err := json.Unmarshal(cells, &rec.Cells); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal cells for %s", rec.Code)
		}
		snap.Rows = append(snap.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate snapshot rows")
	}
	return &snap, nil
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, name string) ([]Snapshot, error) {
	query := `SELECT id, name, row_count, created_at FROM snapshots`
	var args []any
	if name != "" {
		query += ` WHERE name = $1`
		args = append(args, name)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list snapshots")
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.Name, &snap.RowCount, &snap.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot")
		}
		out = append(out, snap)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate snapshots")
}
