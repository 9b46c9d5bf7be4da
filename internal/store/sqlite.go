package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/edmap/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS snapshot_rows (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	code        TEXT NOT NULL,
	name        TEXT NOT NULL,
	cells       TEXT NOT NULL,
	PRIMARY KEY (snapshot_id, position)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_name ON snapshots(name);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, name string, rows []model.RegionRecord) (*Snapshot, error) {
	if err := validateSave(name, rows); err != nil {
		return nil, err
	}
	snap := &Snapshot{
		ID:        uuid.New().String(),
		Name:      name,
		RowCount:  len(rows),
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin snapshot")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, name, row_count, created_at) VALUES (?, ?, ?, ?)`,
		snap.ID, snap.Name, snap.RowCount, snap.CreatedAt,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert snapshot %s", name)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_rows (snapshot_id, position, code, name, cells) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare snapshot rows")
	}
	defer stmt.Close() //nolint:errcheck

	for i, r := range rows {
		cells, err := json.Marshal(r.Cells)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: marshal cells for %s", r.Code)
		}
		if _, err := stmt.ExecContext(ctx, snap.ID, i, r.Code, r.Name, string(cells)); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert row %s", r.Code)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit snapshot")
	}
	return snap, nil
}

func (s *SQLiteStore) LatestSnapshot(ctx context.Context, name string) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, row_count, created_at FROM snapshots WHERE name = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		name,
	).Scan(&snap.ID, &snap.Name, &snap.RowCount, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: snapshot %s", name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest snapshot %s", name)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT code, name, cells FROM snapshot_rows WHERE snapshot_id = ? ORDER BY position`,
		snap.ID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query rows for %s", snap.ID)
	}
	defer rows.Close() //nolint:errcheck

	snap.Rows = make([]model.RegionRecord, 0, snap.RowCount)
	for rows.Next() {
		var rec model.RegionRecord
		var cells string
		if err := rows.Scan(&rec.Code, &rec.Name, &cells); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot row")
		}
		if err := json.Unmarshal([]byte(cells), &rec.Cells); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal cells for %s", rec.Code)
		}
		snap.Rows = append(snap.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate snapshot rows")
	}
	return &snap, nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, name string) ([]Snapshot, error) {
	query := `SELECT id, name, row_count, created_at FROM snapshots`
	var args []any
	if name != "" {
		query += ` WHERE name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list snapshots")
	}
	defer rows.Close() //nolint:errcheck

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.Name, &snap.RowCount, &snap.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot")
		}
		out = append(out, snap)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate snapshots")
}
