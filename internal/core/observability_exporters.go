package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq atomic.Uint64

// ExpvarMetricsRecorder publishes per-operation counters and total latency
// under a single expvar map:
//
//	<op>.success, <op>.error   invocation counts
//	<op>.duration_ms           summed latency
type ExpvarMetricsRecorder struct {
	name string
	vars *expvar.Map
}

// NewExpvarMetricsRecorder publishes a recorder under name. When name is empty
// a unique one is generated, since expvar panics on duplicate names.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("counterstrike_operations_%d", expvarSeq.Add(1))
	}
	return &ExpvarMetricsRecorder{name: name, vars: expvar.NewMap(name)}
}

// Name returns the expvar export name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.vars.Add(operation+"."+status, 1)
	r.vars.AddFloat(operation+".duration_ms", durationMS(duration))
}

// Count returns the recorded invocations of operation with the given outcome.
func (r *ExpvarMetricsRecorder) Count(operation string, success bool) int64 {
	status := "error"
	if success {
		status = "success"
	}
	v, ok := r.vars.Get(operation + "." + status).(*expvar.Int)
	if !ok {
		return 0
	}
	return v.Value()
}

// JSONTraceEntry is one finished span.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// DefaultTraceRetention bounds the spans a JSONTraceTracer keeps in memory.
const DefaultTraceRetention = 256

// JSONTraceTracer writes finished spans as JSON lines and keeps the most
// recent ones for inspection.
type JSONTraceTracer struct {
	mu      sync.Mutex
	enc     *json.Encoder
	keep    int
	entries []JSONTraceEntry
	clock   Clock
}

// NewJSONTracer constructs a tracer writing to w (which may be nil).
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{keep: DefaultTraceRetention, clock: systemClock{}}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns a copy of the retained spans, oldest first.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]JSONTraceEntry(nil), t.entries...)
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{tracer: t, operation: operation, started: t.clock.Now()}
}

func (t *JSONTraceTracer) finish(entry JSONTraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
	if over := len(t.entries) - t.keep; over > 0 {
		t.entries = append(t.entries[:0], t.entries[over:]...)
	}
	if t.enc != nil {
		_ = t.enc.Encode(entry)
	}
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	started   time.Time
	ended     atomic.Bool
}

func (s *jsonTraceSpan) End(err error) {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	ended := s.tracer.clock.Now()
	entry := JSONTraceEntry{
		Operation:  s.operation,
		Status:     string(AuditStatusSuccess),
		DurationMS: durationMS(ended.Sub(s.started)),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		entry.Status = string(AuditStatusError)
		entry.Error = err.Error()
	}
	s.tracer.finish(entry)
}
