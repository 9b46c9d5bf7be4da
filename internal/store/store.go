// Package store persists tabular snapshots so a dataset can be re-served
// from the database instead of refetched from its source.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edmap/internal/model"
)

// ErrNotFound is returned when no snapshot exists for a name.
var ErrNotFound = eris.New("store: not found")

// Snapshot is one imported copy of a tabular dataset.
type Snapshot struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	RowCount  int                  `json:"row_count"`
	CreatedAt time.Time            `json:"created_at"`
	Rows      []model.RegionRecord `json:"rows,omitempty"`
}

// Store defines the persistence interface for tabular snapshots.
type Store interface {
	// SaveSnapshot stores rows under name and returns the new snapshot
	// without its rows.
	SaveSnapshot(ctx context.Context, name string, rows []model.RegionRecord) (*Snapshot, error)
	// LatestSnapshot returns the most recent snapshot for name with its rows
	// in import order.
	LatestSnapshot(ctx context.Context, name string) (*Snapshot, error)
	// ListSnapshots returns snapshot metadata, newest first. An empty name
	// lists every dataset.
	ListSnapshots(ctx context.Context, name string) ([]Snapshot, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store for driver. dsn is a file path for sqlite and a
// connection string for postgres.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = "edmap.db"
		}
		return NewSQLite(dsn)
	case "postgres":
		if dsn == "" {
			return nil, eris.New("store: postgres requires a database url")
		}
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

func validateSave(name string, rows []model.RegionRecord) error {
	if name == "" {
		return eris.New("store: snapshot name is required")
	}
	if len(rows) == 0 {
		return eris.Errorf("store: snapshot %s has no rows", name)
	}
	return nil
}
