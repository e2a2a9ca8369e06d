package core

import (
	"context"
	"fmt"
	"io"

	"swimeeter/internal/infra/persistence/memory"
	"swimeeter/internal/infra/persistence/postgres"
	"swimeeter/internal/infra/persistence/sqlite"
	"swimeeter/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageConfig selects and locates the persistent store.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenPersistentStore opens the backend named by cfg, defaulting to sqlite.
// The returned closer releases any database handle.
func OpenPersistentStore(ctx context.Context, cfg StorageConfig, engine *domain.RulesEngine, opts ...memory.Option) (domain.PersistentStore, io.Closer, error) {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine, opts...), nopCloser{}, nil
	case StorageSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath, engine, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN, engine, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
