package core

import (
	"context"
	"fmt"

	"counterstrike/internal/config"
	"counterstrike/internal/infra/ledger/memory"
	"counterstrike/internal/infra/ledger/mongo"
	"counterstrike/internal/infra/ledger/postgres"
	"counterstrike/internal/infra/ledger/sqlite"
	"counterstrike/pkg/domain"
)

// OpenLedgerStore selects the ledger backend named by cfg.Driver
// (memory|sqlite|postgres|mongo; default sqlite).
func OpenLedgerStore(ctx context.Context, cfg config.Ledger) (domain.LedgerStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = config.LedgerSQLite
	}
	switch driver {
	case config.LedgerMemory:
		return memory.NewStore(), nil
	case config.LedgerSQLite:
		return sqlite.NewStore(ctx, cfg.SQLitePath)
	case config.LedgerPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	case config.LedgerMongo:
		return mongo.NewStore(ctx, mongo.Config{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		})
	default:
		return nil, fmt.Errorf("unknown ledger driver %s", driver)
	}
}

// CloseLedgerStore releases backend resources when the store holds any.
func CloseLedgerStore(ctx context.Context, store domain.LedgerStore) error {
	switch s := store.(type) {
	case interface{ Close(context.Context) error }:
		return s.Close(ctx)
	case interface{ Close() error }:
		return s.Close()
	default:
		return nil
	}
}
