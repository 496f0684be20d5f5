package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/db"
)

// Migration20250801000002AddCacheIndexes adds lookup indexes used by
// pruning (expiry scans and LRU ordering).
func Migration20250801000002AddCacheIndexes() db.Migration {
	return db.Migration{
		Version:     20250801000002,
		Description: "Add cache_entries indexes for pruning",
		Up: func(tx *sql.Tx) error {
			stmts := []string{
				"CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at)",
				"CREATE INDEX IF NOT EXISTS idx_cache_entries_last_access ON cache_entries(last_access)",
				"CREATE INDEX IF NOT EXISTS idx_cache_entries_source ON cache_entries(source)",
			}
			for _, stmt := range stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return errors.Wrapf(err, "failed to execute: %s", stmt)
				}
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			stmts := []string{
				"DROP INDEX IF EXISTS idx_cache_entries_expires_at",
				"DROP INDEX IF EXISTS idx_cache_entries_last_access",
				"DROP INDEX IF EXISTS idx_cache_entries_source",
			}
			for _, stmt := range stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return errors.Wrapf(err, "failed to execute: %s", stmt)
				}
			}
			return nil
		},
	}
}
