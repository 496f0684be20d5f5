package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/db"
)

// Migration20250801000001CreateCacheEntries creates the cache_entries table.
func Migration20250801000001CreateCacheEntries() db.Migration {
	return db.Migration{
		Version:     20250801000001,
		Description: "Create cache_entries table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS cache_entries (
					key TEXT PRIMARY KEY,
					source TEXT NOT NULL,
					path TEXT NOT NULL,
					content_type TEXT,
					size INTEGER NOT NULL,
					created_at DATETIME NOT NULL,
					last_access DATETIME NOT NULL,
					expires_at DATETIME,
					hits INTEGER NOT NULL DEFAULT 0
				)
			`)
			return errors.Wrap(err, "failed to create cache_entries table")
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE IF EXISTS cache_entries")
			return errors.Wrap(err, "failed to drop cache_entries table")
		},
	}
}
