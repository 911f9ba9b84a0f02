package domain

import "context"

// Entry is one key/value pair yielded by a range scan.
type Entry struct {
	Key   string
	Value []byte
}

// Iterator walks a range scan. Callers must Close it on every exit path.
type Iterator interface {
	Next() bool
	Entry() Entry
	Err() error
	Close() error
}

// LedgerStore is the ordered key-value store of record. Every write is atomic
// and visible to subsequent reads; there is no compare-and-swap, so concurrent
// read-modify-write on the same key is last-write-wins.
type LedgerStore interface {
	// Get returns nil, nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// ScanRange yields keys in ascending order from start (inclusive) to end
	// (exclusive). An empty bound is unbounded on that side.
	ScanRange(ctx context.Context, start, end string) (Iterator, error)
}

// IDGenerator issues globally unique product identifiers.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() string

// NewID implements IDGenerator.
func (f IDGeneratorFunc) NewID() string { return f() }
