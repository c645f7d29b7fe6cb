package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/linhvu2695/aiven/internal/profile"
	"github.com/linhvu2695/aiven/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the sqlite database pointed at by the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// Connect to the database with some sane settings:
	// - No shared-cache: it's obsolete; WAL journal mode is a better solution.
	// - Busy timeout to ride out writer contention.
	//
	// Note: with the `modernc.org/sqlite` driver, each pragma must be
	// prefixed with `_pragma=`.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// SQLite handles concurrency at the file level; one connection with WAL
	// is optimal for this workload.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	driver := DB{db: sqliteDB, profile: profile}
	return &driver, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS conversation (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	agent_id TEXT NOT NULL DEFAULT '',
	messages TEXT NOT NULL DEFAULT '[]',
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversation_updated_ts ON conversation (updated_ts);

CREATE TABLE IF NOT EXISTS agent (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	model_id TEXT NOT NULL DEFAULT '',
	persona TEXT NOT NULL DEFAULT '',
	tone TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	tools TEXT NOT NULL DEFAULT '[]'
);
`

// Migrate applies the latest schema to the database.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
