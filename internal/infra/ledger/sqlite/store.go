// Package sqlite provides an embedded SQLite-backed ledger store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"counterstrike/internal/infra/ledger/sqlkv"
	"counterstrike/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.LedgerStore = (*Store)(nil)

// DefaultPath is used when no database path is configured.
const DefaultPath = "counterstrike.db"

// Dialect binds numbered `?N` parameters so a bound value can be referenced twice.
var Dialect = sqlkv.Dialect{
	Name:        "sqlite",
	Placeholder: func(n int) string { return "?" + strconv.Itoa(n) },
	ValueType:   "BLOB",
}

// Store is a ledger persisted in a single SQLite file.
type Store struct {
	*sqlkv.Store
	path string
}

// NewStore opens (creating if needed) the SQLite database at path.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	kv, err := sqlkv.New(ctx, db, Dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: kv, path: path}, nil
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
