package core

import (
	"context"
	"time"

	"counterstrike/pkg/domain"
)

// Logger is the structured key/value logger the service emits operation events to.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return noopLogger{} }

// Clock supplies timestamps for audit entries and durations.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// MetricsRecorder observes the outcome of each service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// TraceSpan is finished with the operation's error (nil on success).
type TraceSpan interface {
	End(err error)
}

// Tracer starts a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type noopTracer struct{}

type noopSpan struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

func (noopSpan) End(error) {}

// AuditStatus is the outcome recorded in an audit entry.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one completed operation.
type AuditEntry struct {
	Operation string
	ProductID string
	Status    AuditStatus
	Code      domain.ErrorCode
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives an entry for every operation.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, AuditEntry) {}

type serviceOptions struct {
	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	ids     domain.IDGenerator
	policy  SalePolicy
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger:  noopLogger{},
		clock:   systemClock{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		audit:   noopAudit{},
		ids:     UUIDGenerator{},
		policy:  SalePolicyConsumerPayload,
	}
}

// Option customises a Service.
type Option func(*serviceOptions)

// WithLogger overrides the logger; nil keeps the default.
func WithLogger(l Logger) Option {
	return func(o *serviceOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the clock.
func WithClock(c Clock) Option {
	return func(o *serviceOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithMetricsRecorder installs a metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(o *serviceOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(t Tracer) Option {
	return func(o *serviceOptions) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithAuditRecorder installs an audit recorder.
func WithAuditRecorder(a AuditRecorder) Option {
	return func(o *serviceOptions) {
		if a != nil {
			o.audit = a
		}
	}
}

// WithIDGenerator overrides product identifier issuance.
func WithIDGenerator(g domain.IDGenerator) Option {
	return func(o *serviceOptions) {
		if g != nil {
			o.ids = g
		}
	}
}

// WithSalePolicy selects the sale eligibility rule.
func WithSalePolicy(p SalePolicy) Option {
	return func(o *serviceOptions) {
		if p != "" {
			o.policy = p
		}
	}
}
