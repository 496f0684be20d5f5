package db

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Migration is a single schema change, versioned by timestamp
// (YYYYMMDDHHmmss) so changes from independent branches merge cleanly.
type Migration struct {
	Version     int64
	Description string
	Up          func(*sql.Tx) error
	// Down undoes the change. A migration without a Down cannot be
	// rolled back.
	Down func(*sql.Tx) error
}

// MigrationRunner applies migrations, tracking what has run in a
// schema_migrations table it maintains in the same database.
type MigrationRunner struct {
	db *sqlx.DB
}

func NewMigrationRunner(db *sqlx.DB) *MigrationRunner {
	return &MigrationRunner{db: db}
}

// Run applies every migration that has not yet run, oldest first.
// Applied versions are skipped, so running on every open is safe.
func (r *MigrationRunner) Run(ctx context.Context, migrations []Migration) error {
	if err := r.ensureTable(ctx); err != nil {
		return err
	}
	applied, err := r.appliedSet(ctx)
	if err != nil {
		return err
	}

	pending := make([]Migration, 0, len(migrations))
	for _, m := range migrations {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	for _, m := range pending {
		err := r.inTx(ctx, func(tx *sqlx.Tx) error {
			if err := m.Up(tx.Tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
				m.Version, time.Now().UTC(), m.Description)
			return errors.Wrap(err, "failed to record migration")
		})
		if err != nil {
			return errors.Wrapf(err, "migration %d (%s)", m.Version, m.Description)
		}
	}
	return nil
}

// Rollback undoes the most recently applied migration. Rolling back an
// empty database is a no-op.
func (r *MigrationRunner) Rollback(ctx context.Context, migrations []Migration) error {
	if err := r.ensureTable(ctx); err != nil {
		return err
	}

	var latest int64
	if err := r.db.GetContext(ctx, &latest, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations"); err != nil {
		return errors.Wrap(err, "failed to find latest migration")
	}
	if latest == 0 {
		return nil
	}

	var target *Migration
	for i := range migrations {
		if migrations[i].Version == latest {
			target = &migrations[i]
			break
		}
	}
	if target == nil {
		return errors.Errorf("applied migration %d is not known to this binary", latest)
	}
	if target.Down == nil {
		return errors.Errorf("migration %d has no rollback", latest)
	}

	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := target.Down(tx.Tx); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", latest)
		return errors.Wrap(err, "failed to delete migration record")
	})
}

// AppliedVersions lists applied migration versions, oldest first.
func (r *MigrationRunner) AppliedVersions(ctx context.Context) ([]int64, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	var versions []int64
	if err := r.db.SelectContext(ctx, &versions, "SELECT version FROM schema_migrations ORDER BY version"); err != nil {
		return nil, errors.Wrap(err, "failed to list applied migrations")
	}
	return versions, nil
}

func (r *MigrationRunner) ensureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL,
			description TEXT
		)
	`)
	return errors.Wrap(err, "failed to create schema_migrations table")
}

func (r *MigrationRunner) appliedSet(ctx context.Context) (map[int64]bool, error) {
	versions, err := r.AppliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[int64]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

func (r *MigrationRunner) inTx(ctx context.Context, f func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := f(tx); err != nil {
		return err
	}
	return tx.Commit()
}
