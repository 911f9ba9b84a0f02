package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"counterstrike/pkg/domain"
)

func TestServiceObservability(t *testing.T) {
	ctx := context.Background()
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	logger := &captureLogger{}
	svc, _ := newTestService(
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithLogger(logger),
	)

	p, err := svc.Create(ctx, "Aspirin", "Smith Pharma Inc.", domain.AtToken("x"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !audit.has(OpCreate, AuditStatusSuccess, func(e AuditEntry) bool { return e.ProductID == p.ID }) {
		t.Fatalf("expected audit entry for create success")
	}
	if !metrics.has(OpCreate, true) || !tracer.has(OpCreate, true) {
		t.Fatalf("expected metrics and span for create")
	}
	if !logger.has("debug", "operation_start") || !logger.has("info", "operation_complete") {
		t.Fatalf("expected start/complete log lines")
	}

	if _, err := svc.Report(ctx, "missing", "r"); err == nil {
		t.Fatalf("expected error")
	}
	if !audit.has(OpReport, AuditStatusError, func(e AuditEntry) bool { return e.Code == domain.CodeNotFound && e.Error != "" }) {
		t.Fatalf("expected classified audit error")
	}
	if !metrics.has(OpReport, false) || !tracer.has(OpReport, false) {
		t.Fatalf("expected failed metrics and span for report")
	}
	if !logger.has("warn", "operation_rejected") {
		t.Fatalf("classified failures log as rejected")
	}
}

func TestServiceLogsUnclassifiedFailure(t *testing.T) {
	logger := &captureLogger{}
	svc, ledger := newTestService(WithLogger(logger))
	ledger.failPut = errBackend
	if _, err := svc.Create(context.Background(), "a", "m", domain.AtToken("x")); err == nil {
		t.Fatalf("expected error")
	}
	if !logger.has("error", "operation_failed") {
		t.Fatalf("expected operation_failed log")
	}
}

func TestServiceClockDrivesAudit(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ticks := 0
	clock := ClockFunc(func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Millisecond)
	})
	audit := &captureAuditRecorder{}
	svc, _ := newTestService(WithClock(clock), WithAuditRecorder(audit))
	_ = svc.Init(context.Background())
	if len(audit.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(audit.entries))
	}
	e := audit.entries[0]
	if e.Duration != time.Millisecond || !e.Timestamp.After(base) {
		t.Fatalf("unexpected timing %+v", e)
	}
}

func TestOptionsIgnoreNil(t *testing.T) {
	svc := NewInMemoryService(
		WithLogger(nil),
		WithClock(nil),
		WithMetricsRecorder(nil),
		WithTracer(nil),
		WithAuditRecorder(nil),
		WithIDGenerator(nil),
		WithSalePolicy(""),
	)
	if svc.logger == nil || svc.clock == nil || svc.metrics == nil || svc.tracer == nil || svc.audit == nil || svc.ids == nil {
		t.Fatalf("nil options must keep defaults")
	}
	if svc.SalePolicy() != SalePolicyConsumerPayload {
		t.Fatalf("default policy: %s", svc.SalePolicy())
	}
	if _, err := svc.Create(context.Background(), "a", "m", domain.AtToken("x")); err != nil {
		t.Fatalf("create with defaults: %v", err)
	}
}

func TestIDGeneratorFuncOption(t *testing.T) {
	svc := NewInMemoryService(WithIDGenerator(domain.IDGeneratorFunc(func() string { return "fixed" })))
	p, _ := svc.Create(context.Background(), "a", "m", domain.AtToken("x"))
	if p.ID != "fixed" {
		t.Fatalf("expected fixed id, got %s", p.ID)
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("nop logger panicked: %v", r)
		}
	}()
	l.Debug("m", "k", 1)
	l.Info("m")
	l.Warn("m")
	l.Error("m")
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), OpCreate, true, 2*time.Millisecond)
	rec.Observe(context.Background(), OpCreate, false, time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)
	if rec.Count(OpCreate, true) != 1 || rec.Count(OpCreate, false) != 1 {
		t.Fatalf("unexpected counts")
	}
	published, ok := expvar.Get(rec.Name()).(*expvar.Map)
	if !ok {
		t.Fatalf("recorder not published under %s", rec.Name())
	}
	if v, ok := published.Get(OpCreate + ".duration_ms").(*expvar.Float); !ok || v.Value() != 3 {
		t.Fatalf("unexpected duration %v", published.Get(OpCreate+".duration_ms"))
	}
	if other := NewExpvarMetricsRecorder(""); other.Name() == rec.Name() {
		t.Fatalf("generated names must be unique")
	}
}

func TestJSONTraceTracer(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	svc, _ := newTestService(WithTracer(tracer))
	ctx := context.Background()
	_, _ = svc.Create(ctx, "a", "m", domain.AtToken("x"))
	_, _ = svc.Get(ctx, "missing")

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(entries))
	}
	if entries[0].Operation != OpCreate || entries[0].Status != string(AuditStatusSuccess) {
		t.Fatalf("unexpected first span %+v", entries[0])
	}
	if entries[1].Status != string(AuditStatusError) || !strings.Contains(entries[1].Error, "does not exist") {
		t.Fatalf("unexpected second span %+v", entries[1])
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 json lines, got %q", buf.String())
	}
	var decoded JSONTraceEntry
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil || decoded.Operation != OpCreate {
		t.Fatalf("decode span: %+v %v", decoded, err)
	}
}

func TestJSONTraceSpanEndsOnce(t *testing.T) {
	tracer := NewJSONTracer(nil)
	_, span := tracer.Start(context.Background(), "op")
	span.End(nil)
	span.End(errors.New("late"))
	if got := tracer.Entries(); len(got) != 1 || got[0].Status != string(AuditStatusSuccess) {
		t.Fatalf("span must end once, got %+v", got)
	}
}

func TestJSONTraceRetention(t *testing.T) {
	tracer := NewJSONTracer(nil)
	for i := 0; i < DefaultTraceRetention+10; i++ {
		_, span := tracer.Start(context.Background(), "op")
		span.End(nil)
	}
	if n := len(tracer.Entries()); n != DefaultTraceRetention {
		t.Fatalf("expected %d retained spans, got %d", DefaultTraceRetention, n)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	svc, _ := newTestService(WithMetricsRecorder(MultiMetricsRecorder{rec, nil}))
	ctx := context.Background()
	_, _ = svc.Create(ctx, "a", "m", domain.AtToken("x"))
	_, _ = svc.Get(ctx, "missing")

	if got := testutil.ToFloat64(rec.total.WithLabelValues(OpCreate, "success")); got != 1 {
		t.Fatalf("create success count = %v", got)
	}
	if got := testutil.ToFloat64(rec.total.WithLabelValues(OpGet, "error")); got != 1 {
		t.Fatalf("get error count = %v", got)
	}
	if n := testutil.CollectAndCount(rec.duration); n != 2 {
		t.Fatalf("expected 2 histogram series, got %d", n)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("duplicate registration must fail")
	}
}
