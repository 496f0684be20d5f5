// Package db opens and migrates the SQLite databases that back the
// media cache index.
package db

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Pragmas applied on open. WAL keeps readers from blocking the writer;
// the busy timeout covers concurrent kash processes sharing one cache.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA cache_size=1000",
	"PRAGMA temp_store=memory",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
}

// Open opens the SQLite database at path, creating the file and its
// parent directory as needed, and applies the standard pragmas.
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	d, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := configure(ctx, d); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func configure(ctx context.Context, d *sqlx.DB) error {
	for _, p := range pragmas {
		if _, err := d.ExecContext(ctx, p); err != nil {
			return errors.Wrapf(err, "failed to apply %q", p)
		}
	}

	// One writer at a time; a single connection avoids SQLITE_BUSY
	// between goroutines of the same process.
	d.SetMaxOpenConns(1)
	d.SetMaxIdleConns(1)

	var mode string
	if err := d.GetContext(ctx, &mode, "PRAGMA journal_mode"); err != nil {
		return errors.Wrap(err, "failed to read journal mode")
	}
	if !strings.EqualFold(mode, "wal") {
		return errors.Errorf("journal mode is %s, want wal", mode)
	}
	return nil
}
