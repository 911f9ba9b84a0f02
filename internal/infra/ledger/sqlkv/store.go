// Package sqlkv implements the ledger store over a single database/sql table.
// The sqlite and postgres packages supply the dialect and driver.
package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"counterstrike/pkg/domain"
)

var _ domain.LedgerStore = (*Store)(nil)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// ValueType is the column type for record payloads.
	ValueType string
}

// Store persists ledger entries as rows of `ledger(id, payload)`.
type Store struct {
	db      *sql.DB
	dialect Dialect

	getSQL  string
	putSQL  string
	scanSQL string
}

// New ensures the ledger table exists and returns a store bound to db.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("%s ledger: nil db", dialect.Name)
	}
	if dialect.Placeholder == nil {
		return nil, fmt.Errorf("%s ledger: dialect placeholder required", dialect.Name)
	}
	s := &Store{db: db, dialect: dialect}
	p := dialect.Placeholder
	s.getSQL = fmt.Sprintf(`SELECT payload FROM ledger WHERE id = %s`, p(1))
	s.putSQL = fmt.Sprintf(`INSERT INTO ledger(id, payload) VALUES(%s, %s) ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`, p(1), p(2))
	s.scanSQL = fmt.Sprintf(`SELECT id, payload FROM ledger WHERE id >= %s AND (%s = '' OR id < %s) ORDER BY id`, p(1), p(2), p(2))
	if err := s.ensureTable(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// DDL returns the table definition for the dialect.
func (d Dialect) DDL() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS ledger (
		id TEXT PRIMARY KEY,
		payload %s NOT NULL
	)`, d.ValueType)
}

func (s *Store) ensureTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.DDL()); err != nil {
		return fmt.Errorf("create ledger table: %w", err)
	}
	return nil
}

// Get returns the stored value or nil when the key is absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, s.getSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Put upserts value under key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, s.putSQL, key, value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// ScanRange streams rows in key order; the returned iterator owns the rows.
func (s *Store) ScanRange(ctx context.Context, start, end string) (domain.Iterator, error) {
	rows, err := s.db.QueryContext(ctx, s.scanSQL, start, end)
	if err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	return &rowsIterator{rows: rows}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

type rowsIterator struct {
	rows    *sql.Rows
	current domain.Entry
	err     error
	closed  bool
}

func (it *rowsIterator) Next() bool {
	if it.closed || it.err != nil {
		return false
	}
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			it.err = fmt.Errorf("iterate ledger: %w", err)
		}
		return false
	}
	var e domain.Entry
	if err := it.rows.Scan(&e.Key, &e.Value); err != nil {
		it.err = fmt.Errorf("scan ledger row: %w", err)
		return false
	}
	it.current = e
	return true
}

func (it *rowsIterator) Entry() domain.Entry { return it.current }

func (it *rowsIterator) Err() error { return it.err }

func (it *rowsIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.rows.Close()
}
