// Package archive writes point-in-time ledger snapshots to blob storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"counterstrike/internal/blob/core"
	lifecycle "counterstrike/internal/core"
	"counterstrike/pkg/domain"
)

const (
	// DefaultPrefix is the key prefix used when none is configured.
	DefaultPrefix = "snapshots/"
	// MetadataProductCount is the blob metadata key holding the snapshot size.
	MetadataProductCount = "product_count"

	contentType     = "application/json"
	timestampLayout = "20060102T150405Z"
	maxKeyAttempts  = 16
)

// Lister is the read side of the lifecycle service used for export.
type Lister interface {
	List(ctx context.Context) ([]domain.Product, error)
}

// Snapshot is the stored document.
type Snapshot struct {
	ExportedAt time.Time        `json:"exported_at"`
	Products   []domain.Product `json:"products"`
}

// Artifact describes a stored snapshot.
type Artifact struct {
	Key          string    `json:"key"`
	ProductCount int       `json:"product_count"`
	SizeBytes    int64     `json:"size_bytes"`
	ETag         string    `json:"etag,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Exporter snapshots every ledger product into a write-once blob.
type Exporter struct {
	source Lister
	store  core.Store
	prefix string
	clock  lifecycle.Clock
	logger lifecycle.Logger

	mu  sync.Mutex
	seq int
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(e *Exporter) {
		if prefix != "" {
			e.prefix = prefix
		}
	}
}

// WithClock sets the time source used for snapshot keys.
func WithClock(c lifecycle.Clock) Option {
	return func(e *Exporter) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l lifecycle.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExporter constructs an exporter reading from source and writing to store.
func NewExporter(source Lister, store core.Store, opts ...Option) *Exporter {
	e := &Exporter{
		source: source,
		store:  store,
		prefix: DefaultPrefix,
		clock:  lifecycle.ClockFunc(time.Now),
		logger: lifecycle.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Prefix returns the key prefix snapshots are written under.
func (e *Exporter) Prefix() string { return e.prefix }

// Export lists the ledger and stores the result under
// <prefix><UTC timestamp>-<n>.json, incrementing n on key collisions.
func (e *Exporter) Export(ctx context.Context) (Artifact, error) {
	if e.source == nil || e.store == nil {
		return Artifact{}, fmt.Errorf("archive exporter not configured")
	}
	products, err := e.source.List(ctx)
	if err != nil {
		return Artifact{}, fmt.Errorf("list products: %w", err)
	}
	now := e.clock.Now().UTC()
	payload, err := json.Marshal(Snapshot{ExportedAt: now, Products: products})
	if err != nil {
		return Artifact{}, err
	}
	meta := map[string]string{MetadataProductCount: strconv.Itoa(len(products))}
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key := e.nextKey(now)
		info, err := e.store.Put(ctx, key, bytes.NewReader(payload), core.PutOptions{ContentType: contentType, Metadata: meta})
		if errors.Is(err, core.ErrExists) {
			continue
		}
		if err != nil {
			e.logger.Error("snapshot_export_failed", "key", key, "error", err)
			return Artifact{}, fmt.Errorf("store snapshot: %w", err)
		}
		artifact := Artifact{Key: info.Key, ProductCount: len(products), SizeBytes: info.Size, ETag: info.ETag, CreatedAt: now}
		e.logger.Info("snapshot_exported", "key", artifact.Key, "product_count", artifact.ProductCount, "size_bytes", artifact.SizeBytes)
		return artifact, nil
	}
	return Artifact{}, fmt.Errorf("store snapshot: no free key after %d attempts", maxKeyAttempts)
}

// List returns stored snapshots oldest first.
func (e *Exporter) List(ctx context.Context) ([]Artifact, error) {
	infos, err := e.store.List(ctx, e.prefix)
	if err != nil {
		return nil, err
	}
	out := make([]Artifact, 0, len(infos))
	for _, info := range infos {
		if _, ok := info.Metadata[MetadataProductCount]; !ok {
			// Some backends omit user metadata from listings.
			if head, err := e.store.Head(ctx, info.Key); err == nil {
				info.Metadata = head.Metadata
			}
		}
		count, _ := strconv.Atoi(info.Metadata[MetadataProductCount])
		out = append(out, Artifact{Key: info.Key, ProductCount: count, SizeBytes: info.Size, ETag: info.ETag, CreatedAt: info.LastModified})
	}
	return out, nil
}

// Latest loads the newest snapshot. It returns core.ErrNotFound when none exist.
func (e *Exporter) Latest(ctx context.Context) (Snapshot, Artifact, error) {
	infos, err := e.store.List(ctx, e.prefix)
	if err != nil {
		return Snapshot{}, Artifact{}, err
	}
	if len(infos) == 0 {
		return Snapshot{}, Artifact{}, fmt.Errorf("no snapshots under %q: %w", e.prefix, core.ErrNotFound)
	}
	return e.Load(ctx, infos[len(infos)-1].Key)
}

// Load reads the snapshot stored at key.
func (e *Exporter) Load(ctx context.Context, key string) (Snapshot, Artifact, error) {
	info, rc, err := e.store.Get(ctx, key)
	if err != nil {
		return Snapshot{}, Artifact{}, err
	}
	defer func() { _ = rc.Close() }()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return Snapshot{}, Artifact{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, Artifact{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	artifact := Artifact{
		Key:          info.Key,
		ProductCount: len(snap.Products),
		SizeBytes:    int64(len(raw)),
		ETag:         info.ETag,
		CreatedAt:    snap.ExportedAt,
	}
	return snap, artifact, nil
}

func (e *Exporter) nextKey(now time.Time) string {
	e.mu.Lock()
	e.seq++
	n := e.seq
	e.mu.Unlock()
	return fmt.Sprintf("%s%s-%04d.json", e.prefix, now.Format(timestampLayout), n)
}
