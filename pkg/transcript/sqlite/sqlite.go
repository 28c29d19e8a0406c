// Package sqlite provides a SQLite-backed transcript driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // register the SQLite driver as "sqlite3"

	"github.com/papercomputeco/agentchat/pkg/transcript/sqldriver"
)

// Dialect is the SQLite schema and parameter style.
var Dialect = sqldriver.Dialect{
	Name: "sqlite",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS exchanges (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			run_id TEXT NOT NULL DEFAULT '',
			agent TEXT NOT NULL DEFAULT '',
			prompt TEXT NOT NULL,
			response TEXT NOT NULL,
			streamed BOOLEAN NOT NULL DEFAULT 0,
			failed BOOLEAN NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			duration_ns INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS exchanges_thread_id ON exchanges (thread_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS exchanges_created_at ON exchanges (created_at)`,
	},
}

// Driver implements transcript.Driver using SQLite.
type Driver struct {
	*sqldriver.Driver
}

// NewDriver opens (creating if needed) the SQLite database at dbPath.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(ctx context.Context, dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes
	// writers from the recording worker pool.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	drv, err := sqldriver.New(ctx, db, Dialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{Driver: drv}, nil
}
