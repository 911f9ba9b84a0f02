// Package memory provides an in-memory ledger store used for tests and
// ephemeral environments.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"counterstrike/pkg/domain"
)

// Compile-time contract assertion ensuring Store adheres to the ledger interface.
var _ domain.LedgerStore = (*Store)(nil)

// Store keeps ledger state in a mutex-guarded map.
type Store struct {
	mu    sync.RWMutex
	state map[string][]byte
	open  atomic.Int64
}

// NewStore constructs an empty in-memory ledger.
func NewStore() *Store {
	return &Store{state: make(map[string][]byte)}
}

// Get returns a copy of the stored value, or nil when absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state[key]
	if !ok {
		return nil, nil
	}
	return cloneBytes(v), nil
}

// Put stores a copy of value under key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = cloneBytes(value)
	return nil
}

// ScanRange snapshots matching entries in ascending key order.
func (s *Store) ScanRange(ctx context.Context, start, end string) (domain.Iterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	entries := make([]domain.Entry, 0, len(s.state))
	for k, v := range s.state {
		if start != "" && k < start {
			continue
		}
		if end != "" && k >= end {
			continue
		}
		entries = append(entries, domain.Entry{Key: k, Value: cloneBytes(v)})
	}
	s.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	s.open.Add(1)
	return &iterator{store: s, entries: entries, pos: -1}, nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state)
}

// OpenIterators reports scans that have not been closed yet.
func (s *Store) OpenIterators() int64 {
	return s.open.Load()
}

// Import replaces the store contents, used to seed fixtures.
func (s *Store) Import(state map[string][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = make(map[string][]byte, len(state))
	for k, v := range state {
		s.state[k] = cloneBytes(v)
	}
}

type iterator struct {
	store   *Store
	entries []domain.Entry
	pos     int
	closed  bool
}

func (it *iterator) Next() bool {
	if it.closed || it.pos+1 >= len(it.entries) {
		return false
	}
	it.pos++
	return true
}

func (it *iterator) Entry() domain.Entry {
	if it.pos < 0 || it.pos >= len(it.entries) {
		return domain.Entry{}
	}
	return it.entries[it.pos]
}

func (it *iterator) Err() error { return nil }

func (it *iterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.store.open.Add(-1)
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
