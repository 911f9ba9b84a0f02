package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"counterstrike/internal/infra/ledger/ledgertest"
	"counterstrike/pkg/domain"
)

func TestStoreContract(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) domain.LedgerStore {
		s, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	s, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Path() != path {
		t.Fatalf("path: %s", s.Path())
	}
	if err := s.Put(ctx, "p1", []byte(`{"id":"p1"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	_ = s.Close()

	reopened, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	v, err := reopened.Get(ctx, "p1")
	if err != nil || string(v) != `{"id":"p1"}` {
		t.Fatalf("get after reopen: %q %v", v, err)
	}
}

func TestStoreInMemory(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = s.Close() }()
	if err := s.Put(ctx, "a", []byte("1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if v, _ := s.Get(ctx, "a"); string(v) != "1" {
		t.Fatalf("in-memory database lost write: %q", v)
	}
}

func TestDialect(t *testing.T) {
	if got := Dialect.Placeholder(2); got != "?2" {
		t.Fatalf("placeholder: %s", got)
	}
	if !strings.Contains(Dialect.DDL(), "payload BLOB NOT NULL") {
		t.Fatalf("ddl: %s", Dialect.DDL())
	}
}
