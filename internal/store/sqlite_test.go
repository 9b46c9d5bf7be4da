package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edmap/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleRows() []model.RegionRecord {
	return []model.RegionRecord{
		{Code: "CA", Name: "California", Cells: map[string]string{"SALARY_2020_2021": "84531", "UNDERQUALIFIED_YEAR": "2019"}},
		{Code: "TX", Name: "Texas", Cells: map[string]string{"SALARY_2020_2021": "57091", "UNDERQUALIFIED_YEAR": ""}},
		{Code: "NY", Name: "New York", Cells: map[string]string{"SALARY_2020_2021": "87069"}},
	}
}

func TestSQLite_SaveAndLatest(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	snap, err := st.SaveSnapshot(ctx, "education", sampleRows())
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, 3, snap.RowCount)
	assert.Nil(t, snap.Rows)

	got, err := st.LatestSnapshot(ctx, "education")
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, "education", got.Name)
	assert.Equal(t, sampleRows(), got.Rows)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLite_LatestWins(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveSnapshot(ctx, "education", sampleRows())
	require.NoError(t, err)
	second, err := st.SaveSnapshot(ctx, "education", sampleRows()[:1])
	require.NoError(t, err)

	got, err := st.LatestSnapshot(ctx, "education")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "CA", got.Rows[0].Code)
}

func TestSQLite_LatestNotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.LatestSnapshot(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_ListSnapshots(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.SaveSnapshot(ctx, "education", sampleRows())
	require.NoError(t, err)
	second, err := st.SaveSnapshot(ctx, "education", sampleRows())
	require.NoError(t, err)
	other, err := st.SaveSnapshot(ctx, "other", sampleRows()[:2])
	require.NoError(t, err)

	edu, err := st.ListSnapshots(ctx, "education")
	require.NoError(t, err)
	require.Len(t, edu, 2)
	assert.Equal(t, second.ID, edu[0].ID)
	assert.Equal(t, first.ID, edu[1].ID)

	all, err := st.ListSnapshots(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, other.ID, all[0].ID)
	assert.Equal(t, 2, all[0].RowCount)
}

func TestSQLite_SaveRejectsInvalid(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveSnapshot(ctx, "", sampleRows())
	assert.Error(t, err)
	_, err = st.SaveSnapshot(ctx, "education", nil)
	assert.Error(t, err)

	list, err := st.ListSnapshots(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "open.db"), nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, st)
	require.NoError(t, st.Close())

	_, err = Open(ctx, "postgres", "", nil)
	assert.Error(t, err)

	_, err = Open(ctx, "mongo", "x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
