package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"counterstrike/internal/infra/ledger/memory"
	"counterstrike/pkg/domain"
)

type captureAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, predicate func(AuditEntry) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			if predicate == nil || predicate(entry) {
				return true
			}
		}
	}
	return false
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type logLine struct {
	level string
	msg   string
	kv    []any
}

type captureLogger struct {
	mu    sync.Mutex
	lines []logLine
}

func (l *captureLogger) add(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, logLine{level: level, msg: msg, kv: kv})
}

func (l *captureLogger) Debug(msg string, kv ...any) { l.add("debug", msg, kv) }
func (l *captureLogger) Info(msg string, kv ...any)  { l.add("info", msg, kv) }
func (l *captureLogger) Warn(msg string, kv ...any)  { l.add("warn", msg, kv) }
func (l *captureLogger) Error(msg string, kv ...any) { l.add("error", msg, kv) }

func (l *captureLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if line.level == level && line.msg == msg {
			return true
		}
	}
	return false
}

// sequenceIDs yields p-1, p-2, ... so tests can predict keys.
type sequenceIDs struct {
	mu sync.Mutex
	n  int
}

func (g *sequenceIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("p-%d", g.n)
}

// countingLedger wraps a memory store and counts calls per method.
type countingLedger struct {
	*memory.Store
	gets, puts, scans int
	failGet           error
	failPut           error
	failScan          error
}

func newCountingLedger() *countingLedger { return &countingLedger{Store: memory.NewStore()} }

func (c *countingLedger) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets++
	if c.failGet != nil {
		return nil, c.failGet
	}
	return c.Store.Get(ctx, key)
}

func (c *countingLedger) Put(ctx context.Context, key string, value []byte) error {
	c.puts++
	if c.failPut != nil {
		return c.failPut
	}
	return c.Store.Put(ctx, key, value)
}

func (c *countingLedger) ScanRange(ctx context.Context, start, end string) (domain.Iterator, error) {
	c.scans++
	if c.failScan != nil {
		return nil, c.failScan
	}
	return c.Store.ScanRange(ctx, start, end)
}

func (c *countingLedger) reset() { c.gets, c.puts, c.scans = 0, 0, 0 }

// failingIterator yields its entries and then reports err.
type failingIterator struct {
	entries []domain.Entry
	pos     int
	err     error
	closed  int
}

func (it *failingIterator) Next() bool {
	if it.pos >= len(it.entries) {
		return false
	}
	it.pos++
	return true
}

func (it *failingIterator) Entry() domain.Entry { return it.entries[it.pos-1] }
func (it *failingIterator) Err() error          { return it.err }
func (it *failingIterator) Close() error {
	it.closed++
	return nil
}

type iteratorLedger struct {
	domain.LedgerStore
	it *failingIterator
}

func (l iteratorLedger) ScanRange(context.Context, string, string) (domain.Iterator, error) {
	return l.it, nil
}

var errBackend = errors.New("backend unavailable")

func newTestService(opts ...Option) (*Service, *countingLedger) {
	ledger := newCountingLedger()
	opts = append([]Option{WithIDGenerator(&sequenceIDs{})}, opts...)
	return NewService(ledger, opts...), ledger
}
