// Package sqlite implements the durable local credential cache on top of a
// single-file SQLite database.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	secret_hash TEXT NOT NULL DEFAULT '',
	username TEXT,
	full_name TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT '',
	avatar_ref TEXT NOT NULL DEFAULT '',
	interests TEXT NOT NULL DEFAULT '[]',
	is_new_user INTEGER NOT NULL DEFAULT 0,
	is_password_set INTEGER NOT NULL DEFAULT 0,
	onboarding_complete INTEGER NOT NULL DEFAULT 0,
	profile_setup_complete INTEGER NOT NULL DEFAULT 0,
	pending_sync INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username
	ON users(lower(username)) WHERE username IS NOT NULL;
CREATE TABLE IF NOT EXISTS active_session (
	k INTEGER PRIMARY KEY CHECK (k = 1),
	user_id TEXT NOT NULL
);
`

// Open opens (creating if necessary) the cache database and applies the
// schema. The store is a single-writer local cache, so the pool is pinned to
// one connection; this also keeps ":memory:" databases coherent in tests.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return db, nil
}
