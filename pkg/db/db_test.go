package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	d, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpenConfiguresDatabase(t *testing.T) {
	d := openTestDB(t)

	var mode string
	require.NoError(t, d.Get(&mode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, d.Get(&fk, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fk)
}

func createTable(name string) func(*sql.Tx) error {
	return func(tx *sql.Tx) error {
		_, err := tx.Exec("CREATE TABLE " + name + " (id INTEGER PRIMARY KEY)")
		return err
	}
}

func TestMigrationRunnerAppliesInOrder(t *testing.T) {
	d := openTestDB(t)
	runner := NewMigrationRunner(d)

	// Deliberately out of order; the runner sorts by version.
	migrations := []Migration{
		{Version: 20250801000002, Description: "second", Up: func(tx *sql.Tx) error {
			_, err := tx.Exec("ALTER TABLE items ADD COLUMN title TEXT")
			return err
		}},
		{Version: 20250801000001, Description: "first", Up: createTable("items")},
	}

	require.NoError(t, runner.Run(context.Background(), migrations))

	versions, err := runner.AppliedVersions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{20250801000001, 20250801000002}, versions)
}

func TestMigrationRunnerIdempotent(t *testing.T) {
	d := openTestDB(t)
	runner := NewMigrationRunner(d)

	migrations := []Migration{
		{Version: 20250801000001, Description: "first", Up: createTable("items")},
	}

	require.NoError(t, runner.Run(context.Background(), migrations))
	require.NoError(t, runner.Run(context.Background(), migrations))

	var count int
	require.NoError(t, d.Get(&count, "SELECT COUNT(*) FROM schema_migrations"))
	assert.Equal(t, 1, count)
}

func TestMigrationRunnerFailureRollsBack(t *testing.T) {
	d := openTestDB(t)
	runner := NewMigrationRunner(d)

	migrations := []Migration{
		{Version: 20250801000001, Description: "broken", Up: func(tx *sql.Tx) error {
			_, err := tx.Exec("THIS IS NOT SQL")
			return err
		}},
	}

	require.Error(t, runner.Run(context.Background(), migrations))

	versions, err := runner.AppliedVersions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestMigrationRunnerRollback(t *testing.T) {
	d := openTestDB(t)
	runner := NewMigrationRunner(d)

	migrations := []Migration{
		{
			Version:     20250801000001,
			Description: "first",
			Up:          createTable("items"),
			Down: func(tx *sql.Tx) error {
				_, err := tx.Exec("DROP TABLE items")
				return err
			},
		},
	}

	require.NoError(t, runner.Run(context.Background(), migrations))
	require.NoError(t, runner.Rollback(context.Background(), migrations))

	var tables int
	require.NoError(t, d.Get(&tables,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='items'"))
	assert.Zero(t, tables)

	versions, err := runner.AppliedVersions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestRollbackEmptyDatabase(t *testing.T) {
	d := openTestDB(t)
	require.NoError(t, NewMigrationRunner(d).Rollback(context.Background(), nil))
}

func TestRollbackWithoutDown(t *testing.T) {
	d := openTestDB(t)
	runner := NewMigrationRunner(d)

	migrations := []Migration{
		{Version: 20250801000001, Description: "first", Up: createTable("items")},
	}

	require.NoError(t, runner.Run(context.Background(), migrations))
	assert.Error(t, runner.Rollback(context.Background(), migrations))
}
