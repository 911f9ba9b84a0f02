// Package mongo provides a MongoDB-backed ledger store. Each ledger entry is a
// document keyed by `_id` holding the raw record bytes.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"counterstrike/pkg/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ domain.LedgerStore = (*Store)(nil)

const (
	DefaultDatabase   = "counterstrike"
	DefaultCollection = "ledger"
	connectTimeout    = 10 * time.Second
)

// Config holds connection parameters.
type Config struct {
	URI        string
	Database   string
	Collection string
}

type ledgerDoc struct {
	ID      string `bson:"_id"`
	Payload []byte `bson:"payload"`
}

// Store persists ledger entries in a single collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewStore connects to MongoDB and verifies the deployment is reachable.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri required")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return NewFromCollection(client, client.Database(cfg.Database).Collection(cfg.Collection)), nil
}

// NewFromCollection wraps an existing collection handle.
func NewFromCollection(client *mongo.Client, coll *mongo.Collection) *Store {
	return &Store{client: client, collection: coll}
}

// Get returns nil, nil when no document exists for key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var doc ledgerDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return doc.Payload, nil
}

// Put upserts the document for key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	doc := ledgerDoc{ID: key, Payload: value}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// ScanRange streams documents sorted by `_id`.
func (s *Store) ScanRange(ctx context.Context, start, end string) (domain.Iterator, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.collection.Find(ctx, RangeFilter(start, end), opts)
	if err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	return &cursorIterator{ctx: ctx, cur: cur}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// RangeFilter builds the `_id` bounds for a scan; empty bounds are omitted.
func RangeFilter(start, end string) bson.M {
	bounds := bson.M{}
	if start != "" {
		bounds["$gte"] = start
	}
	if end != "" {
		bounds["$lt"] = end
	}
	if len(bounds) == 0 {
		return bson.M{}
	}
	return bson.M{"_id": bounds}
}

type cursorIterator struct {
	ctx     context.Context
	cur     *mongo.Cursor
	current domain.Entry
	err     error
	closed  bool
}

func (it *cursorIterator) Next() bool {
	if it.closed || it.err != nil {
		return false
	}
	if !it.cur.Next(it.ctx) {
		if err := it.cur.Err(); err != nil {
			it.err = fmt.Errorf("iterate ledger: %w", err)
		}
		return false
	}
	var doc ledgerDoc
	if err := it.cur.Decode(&doc); err != nil {
		it.err = fmt.Errorf("decode ledger document: %w", err)
		return false
	}
	it.current = domain.Entry{Key: doc.ID, Value: doc.Payload}
	return true
}

func (it *cursorIterator) Entry() domain.Entry { return it.current }

func (it *cursorIterator) Err() error { return it.err }

func (it *cursorIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	// release the server-side cursor even if the scan context was cancelled
	return it.cur.Close(context.WithoutCancel(it.ctx))
}
