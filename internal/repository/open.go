package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/config"
	"github.com/stemsi/exstem-prep/internal/database"
)

// Open connects the result store selected by cfg.StorageKind. Closing the
// store releases its connection.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ResultStore, error) {
	switch cfg.StorageKind {
	case config.StorageSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return NewSQLiteResultRepository(db), nil
	case config.StoragePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return NewResultRepository(pool), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageKind)
	}
}
