// Package store opens the transcript driver selected by configuration.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/transcript"
	"github.com/papercomputeco/agentchat/pkg/transcript/inmemory"
	"github.com/papercomputeco/agentchat/pkg/transcript/postgres"
	"github.com/papercomputeco/agentchat/pkg/transcript/sqlite"
)

// DefaultSQLiteFile is created in the .agentchat/ directory when no SQLite
// path is configured.
const DefaultSQLiteFile = "agentchat.db"

// Open returns the driver named by cfg.Driver. dotDir is the resolved
// .agentchat/ directory used for the default SQLite path.
func Open(ctx context.Context, cfg config.StorageConfig, dotDir string) (transcript.Driver, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return inmemory.NewDriver(), nil

	case config.StoragePostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("storage.postgres_dsn is required for the postgres driver")
		}
		return postgres.NewDriver(ctx, cfg.PostgresDSN)

	case config.StorageSQLite, "":
		path := cfg.SQLitePath
		if path == "" {
			if dotDir == "" {
				return nil, errors.New("no sqlite path configured and no .agentchat directory resolved")
			}
			path = filepath.Join(dotDir, DefaultSQLiteFile)
		}
		return sqlite.NewDriver(ctx, path)

	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}
