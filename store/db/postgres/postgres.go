package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	// Import the Postgres driver.
	_ "github.com/lib/pq"

	"github.com/linhvu2695/aiven/internal/profile"
	"github.com/linhvu2695/aiven/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a postgres database specified by its connection string.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	postgresDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	driver := DB{db: postgresDB, profile: profile}
	return &driver, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS conversation (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	agent_id TEXT NOT NULL DEFAULT '',
	messages JSONB NOT NULL DEFAULT '[]',
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
	tools JSONB NOT NULL DEFAULT '[]'
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

// placeholder returns the postgres positional placeholder for index n (1-based).
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns a comma-joined list of n positional placeholders.
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}
