// Package ledgertest holds the behavioural contract every ledger store must pass.
package ledgertest

import (
	"bytes"
	"context"
	"testing"

	"counterstrike/pkg/domain"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) domain.LedgerStore

// Run exercises Get/Put/ScanRange semantics against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissingReturnsNil", func(t *testing.T) {
		s := newStore(t)
		v, err := s.Get(ctx, "absent")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if len(v) != 0 {
			t.Fatalf("expected no value, got %q", v)
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		s := newStore(t)
		mustPut(t, s, "k", "one")
		mustPut(t, s, "k", "two")
		v, err := s.Get(ctx, "k")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(v) != "two" {
			t.Fatalf("expected last write to win, got %q", v)
		}
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		s := newStore(t)
		value := []byte("abc")
		if err := s.Put(ctx, "k", value); err != nil {
			t.Fatalf("put: %v", err)
		}
		value[0] = 'x'
		v, _ := s.Get(ctx, "k")
		if !bytes.Equal(v, []byte("abc")) {
			t.Fatalf("stored value aliased caller buffer: %q", v)
		}
	})

	t.Run("ScanAllAscending", func(t *testing.T) {
		s := newStore(t)
		for _, k := range []string{"c", "a", "b"} {
			mustPut(t, s, k, "v-"+k)
		}
		got := collect(t, s, "", "")
		assertKeys(t, got, "a", "b", "c")
		if string(got[0].Value) != "v-a" {
			t.Fatalf("unexpected value %q", got[0].Value)
		}
	})

	t.Run("ScanRangeBounds", func(t *testing.T) {
		s := newStore(t)
		for _, k := range []string{"a", "b", "c", "d"} {
			mustPut(t, s, k, k)
		}
		assertKeys(t, collect(t, s, "b", "d"), "b", "c")
		assertKeys(t, collect(t, s, "c", ""), "c", "d")
		assertKeys(t, collect(t, s, "", "b"), "a")
		assertKeys(t, collect(t, s, "x", ""))
	})

	t.Run("ScanEmpty", func(t *testing.T) {
		s := newStore(t)
		assertKeys(t, collect(t, s, "", ""))
	})

	t.Run("CloseIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		mustPut(t, s, "a", "1")
		it, err := s.ScanRange(ctx, "", "")
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if err := it.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		if err := it.Close(); err != nil {
			t.Fatalf("second close: %v", err)
		}
		if it.Next() {
			t.Fatalf("closed iterator must not advance")
		}
	})
}

func mustPut(t *testing.T, s domain.LedgerStore, key, value string) {
	t.Helper()
	if err := s.Put(context.Background(), key, []byte(value)); err != nil {
		t.Fatalf("put %s: %v", key, err)
	}
}

func collect(t *testing.T, s domain.LedgerStore, start, end string) []domain.Entry {
	t.Helper()
	it, err := s.ScanRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	defer func() { _ = it.Close() }()
	var out []domain.Entry
	for it.Next() {
		out = append(out, it.Entry())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	return out
}

func assertKeys(t *testing.T, entries []domain.Entry, want ...string) {
	t.Helper()
	if len(entries) != len(want) {
		t.Fatalf("expected keys %v, got %d entries", want, len(entries))
	}
	for i, e := range entries {
		if e.Key != want[i] {
			t.Fatalf("entry %d: expected %s, got %s", i, want[i], e.Key)
		}
	}
}
