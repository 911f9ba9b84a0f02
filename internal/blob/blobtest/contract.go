// Package blobtest holds the behavioural contract shared by blob store tests.
package blobtest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"counterstrike/internal/blob/core"
)

// Run exercises write-once Put, Get, Head and prefix List on store.
func Run(t *testing.T, store core.Store) {
	t.Helper()
	ctx := context.Background()
	opts := core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"product_count": "3"}}

	info, err := store.Put(ctx, "snapshots/a.json", bytes.NewReader([]byte(`{"a":1}`)), opts)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "snapshots/a.json" || info.Size != 7 {
		t.Fatalf("unexpected put info %+v", info)
	}
	if _, err := store.Put(ctx, "snapshots/a.json", bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	head, err := store.Head(ctx, "snapshots/a.json")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.ContentType != "application/json" || head.Metadata["product_count"] != "3" {
		t.Fatalf("unexpected head %+v", head)
	}

	got, rc, err := store.Get(ctx, "snapshots/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"a":1}` || got.Size != 7 {
		t.Fatalf("unexpected body %q info %+v", body, got)
	}

	if _, err := store.Put(ctx, "snapshots/b.json", bytes.NewReader([]byte("{}")), opts); err != nil {
		t.Fatalf("put b: %v", err)
	}
	if _, err := store.Put(ctx, "other/c.json", bytes.NewReader([]byte("{}")), opts); err != nil {
		t.Fatalf("put c: %v", err)
	}
	list, err := store.List(ctx, "snapshots/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "snapshots/a.json" || list[1].Key != "snapshots/b.json" {
		t.Fatalf("unexpected listing %+v", list)
	}
	all, _ := store.List(ctx, "")
	if len(all) != 3 {
		t.Fatalf("expected 3 blobs, got %d", len(all))
	}

	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head missing: %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get missing: %v", err)
	}
}
