// Package backend opens the configured table store.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/prediction-pulse/internal/config"
	"github.com/rickgao/prediction-pulse/internal/database"
	"github.com/rickgao/prediction-pulse/internal/postgrest"
	"github.com/rickgao/prediction-pulse/internal/store"
)

// Open returns the store selected by cfg.Backend.Driver and a function that
// releases it.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend.Driver {
	case config.DriverREST:
		return openREST(cfg, logger), func() {}, nil

	case config.DriverPostgres:
		db := cfg.Database.Postgres
		logger.Info("connecting to database",
			"host", db.Host,
			"port", db.Port,
			"database", db.Name,
		)
		pool, err := database.Connect(ctx, db)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		logger.Info("database connected")
		return database.NewStore(pool, cfg.Ingest.ChunkSize, logger), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
	}
}

func openREST(cfg *config.Config, logger *slog.Logger) *store.REST {
	b := cfg.Backend
	opts := []postgrest.ClientOption{
		postgrest.WithTimeout(b.Timeout),
		postgrest.WithRetries(b.MaxRetries, time.Second),
		postgrest.WithLogger(logger),
		postgrest.WithChunkSize(cfg.Ingest.ChunkSize),
	}

	read := postgrest.NewClient(b.RestURL, b.APIKey, opts...)
	write := read
	if b.ServiceKey != "" {
		write = postgrest.NewClient(b.RestURL, b.WriteKey(), opts...)
	}

	logger.Info("using rest backend", "url", b.RestURL, "service_key", b.ServiceKey != "")
	return store.NewREST(read, write, logger)
}
