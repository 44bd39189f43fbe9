package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, name string) *DB {
	t.Helper()
	db, err := New(Config{
		Path: filepath.Join(t.TempDir(), name+".db"),
		Name: name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrate_CreatesForecastRuns(t *testing.T) {
	db := newTestDB(t, "forecasts")
	require.NoError(t, db.Migrate())

	var count int
	err := db.Conn().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='forecast_runs'",
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Second run is a no-op
	require.NoError(t, db.Migrate())
}

func TestMigrate_ReportsExecutionErrors(t *testing.T) {
	db := newTestDB(t, "forecasts")
	require.NoError(t, db.Close())

	err := db.Migrate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
}

func TestNew_AppliesPragmas(t *testing.T) {
	db := newTestDB(t, "forecasts")

	var journal string
	require.NoError(t, db.Conn().QueryRow("PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)

	var synchronous, autoVacuum, busyTimeout int
	require.NoError(t, db.Conn().QueryRow("PRAGMA synchronous").Scan(&synchronous))
	require.NoError(t, db.Conn().QueryRow("PRAGMA auto_vacuum").Scan(&autoVacuum))
	require.NoError(t, db.Conn().QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 1, synchronous) // NORMAL
	assert.Equal(t, 2, autoVacuum)  // INCREMENTAL
	assert.Equal(t, 5000, busyTimeout)
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db := newTestDB(t, "scratch")
	assert.NoError(t, db.Migrate())
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newTestDB(t, "forecasts")
	_, err := db.Conn().Exec("CREATE TABLE t (v INTEGER)")
	require.NoError(t, err)

	sentinel := errors.New("boom")
	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO t (v) VALUES (1)"); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM t").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTransaction_RecoversPanic(t *testing.T) {
	db := newTestDB(t, "forecasts")
	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("bad")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")
}

func TestHealthCheckAndStats(t *testing.T) {
	db := newTestDB(t, "forecasts")
	require.NoError(t, db.Migrate())
	require.NoError(t, db.HealthCheck(context.Background()))
	require.NoError(t, db.WALCheckpoint(""))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Positive(t, stats.PageSize)
	assert.Equal(t, "forecasts", db.Name())
}
