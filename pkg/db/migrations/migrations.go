// Package migrations contains all database migrations for the media kit's
// cache index. Migrations use Rails-style timestamp versioning
// (YYYYMMDDHHmmss).
package migrations

import (
	"github.com/jlevy/kash-media/pkg/db"
)

// All returns all registered migrations in the correct order.
// New migrations should be added to this list.
func All() []db.Migration {
	return []db.Migration{
		Migration20250801000001CreateCacheEntries(),
		Migration20250801000002AddCacheIndexes(),
	}
}
