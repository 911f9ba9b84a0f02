// Package core implements the product lifecycle: creation, custody transfer,
// counterfeit reporting and sale, each as a single-record read-modify-write
// against the ledger store.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"counterstrike/internal/infra/ledger/memory"
	"counterstrike/pkg/domain"
)

// Operation names used for logs, metrics, traces and audit entries.
const (
	OpInit     = "init"
	OpSeed     = "seed"
	OpCreate   = "create_product"
	OpList     = "list_products"
	OpGet      = "get_product"
	OpReport   = "report_product"
	OpTransfer = "transfer_product"
	OpSell     = "sell_product"
)

// Service is the lifecycle manager. It holds no product state between calls;
// the ledger is the only owner of records.
type Service struct {
	ledger  domain.LedgerStore
	ids     domain.IDGenerator
	policy  SalePolicy
	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
}

// NewService constructs a service backed by the supplied ledger.
func NewService(ledger domain.LedgerStore, opts ...Option) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		ledger:  ledger,
		ids:     o.ids,
		policy:  o.policy,
		logger:  o.logger,
		clock:   o.clock,
		metrics: o.metrics,
		tracer:  o.tracer,
		audit:   o.audit,
	}
}

// NewInMemoryService creates a service over a fresh in-memory ledger.
func NewInMemoryService(opts ...Option) *Service {
	return NewService(memory.NewStore(), opts...)
}

// Ledger returns the underlying store.
func (s *Service) Ledger() domain.LedgerStore { return s.ledger }

// SalePolicy returns the configured sale eligibility rule.
func (s *Service) SalePolicy() SalePolicy { return s.policy }

// Init runs once when the service is instantiated.
func (s *Service) Init(ctx context.Context) error {
	return s.run(ctx, OpInit, "", func(context.Context) error {
		s.logger.Info("ledger_instantiated")
		return nil
	})
}

// Seed writes the sample catalogue. Each call creates new, distinct records.
func (s *Service) Seed(ctx context.Context) ([]domain.Product, error) {
	var seeded []domain.Product
	err := s.run(ctx, OpSeed, "", func(ctx context.Context) error {
		for _, item := range seedCatalogue {
			p := domain.NewProduct(s.ids.NewID(), item.name, item.manufacturer, SeedOrigin())
			if err := s.save(ctx, p); err != nil {
				return err
			}
			s.logger.Debug("product_seeded", "product_id", p.ID, "name", p.Name)
			seeded = append(seeded, p)
		}
		return nil
	})
	return seeded, err
}

// Create registers a new product with its factory origin event.
func (s *Service) Create(ctx context.Context, name, manufacturer string, origin domain.Location) (domain.Product, error) {
	p := domain.NewProduct(s.ids.NewID(), name, manufacturer, origin)
	err := s.run(ctx, OpCreate, p.ID, func(ctx context.Context) error {
		return s.save(ctx, p)
	})
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// List returns every decodable product on the ledger in key order. Empty or
// malformed entries are skipped.
func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	err := s.run(ctx, OpList, "", func(ctx context.Context) (retErr error) {
		it, err := s.ledger.ScanRange(ctx, "", "")
		if err != nil {
			return fmt.Errorf("scan ledger: %w", err)
		}
		defer func() {
			if cerr := it.Close(); cerr != nil && retErr == nil {
				retErr = fmt.Errorf("close ledger scan: %w", cerr)
			}
		}()
		for it.Next() {
			entry := it.Entry()
			if len(entry.Value) == 0 {
				continue
			}
			p, err := domain.DecodeProduct(entry.Value)
			if err != nil {
				s.logger.Warn("ledger_entry_skipped", "key", entry.Key, "error", err.Error())
				continue
			}
			products = append(products, p)
		}
		if err := it.Err(); err != nil {
			return fmt.Errorf("scan ledger: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Get returns the stored record bytes for id.
func (s *Service) Get(ctx context.Context, id string) ([]byte, error) {
	var raw []byte
	err := s.run(ctx, OpGet, id, func(ctx context.Context) error {
		v, err := s.ledger.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get product %s: %w", id, err)
		}
		if len(v) == 0 {
			return domain.ProductNotFound(id)
		}
		raw = v
		return nil
	})
	return raw, err
}

// Report flags the latest custody event of id as counterfeit.
func (s *Service) Report(ctx context.Context, id, reason string) (domain.Product, error) {
	return s.mutate(ctx, OpReport, id, func(p *domain.Product) error {
		return p.DowngradeAuthenticity(reason)
	})
}

// Transfer appends a custody event; it inherits the product's current
// authenticity, so a transfer can carry a counterfeit flag forward but never
// raise or clear one.
func (s *Service) Transfer(ctx context.Context, id string, target domain.CustodyEvent) (domain.Product, error) {
	return s.mutate(ctx, OpTransfer, id, func(p *domain.Product) error {
		p.AppendCustody(target)
		return nil
	})
}

// Sell records the end consumer and marks the product sold. A nil consumer
// means none was supplied; the sale policy decides eligibility.
func (s *Service) Sell(ctx context.Context, id string, consumer *domain.Consumer) (domain.Product, error) {
	return s.mutate(ctx, OpSell, id, func(p *domain.Product) error {
		if err := s.policy.check(*p, consumer); err != nil {
			return err
		}
		return p.Sell(*consumer)
	})
}

// mutate performs exactly one read and, when fn succeeds, exactly one write.
// There is no version check: concurrent writers on the same id are
// last-write-wins.
func (s *Service) mutate(ctx context.Context, op, id string, fn func(*domain.Product) error) (domain.Product, error) {
	var out domain.Product
	err := s.run(ctx, op, id, func(ctx context.Context) error {
		p, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(&p); err != nil {
			return err
		}
		if err := s.save(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, id string) (domain.Product, error) {
	raw, err := s.ledger.Get(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	if len(raw) == 0 {
		return domain.Product{}, domain.ProductNotFound(id)
	}
	p, err := domain.DecodeProduct(raw)
	if err != nil {
		return domain.Product{}, domain.NewError(domain.CodeCorruptRecord, fmt.Sprintf("Product %s cannot be decoded: %v", id, err))
	}
	return p, nil
}

func (s *Service) save(ctx context.Context, p domain.Product) error {
	raw, err := p.Encode()
	if err != nil {
		return fmt.Errorf("encode product %s: %w", p.ID, err)
	}
	if err := s.ledger.Put(ctx, p.ID, raw); err != nil {
		return fmt.Errorf("put product %s: %w", p.ID, err)
	}
	return nil
}

func (s *Service) run(ctx context.Context, op, productID string, fn func(context.Context) error) error {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	s.logger.Debug("operation_start", "operation", op, "product_id", productID)

	err := fn(ctx)

	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	entry := AuditEntry{
		Operation: op,
		ProductID: productID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Code = domain.CodeOf(err)
		entry.Error = err.Error()
		s.logOutcome(op, productID, duration, err)
	} else {
		s.logger.Info("operation_complete", "operation", op, "product_id", productID, "duration_ms", durationMS(duration))
	}
	s.audit.Record(ctx, entry)
	return err
}

func (s *Service) logOutcome(op, productID string, duration time.Duration, err error) {
	var classified *domain.Error
	if errors.As(err, &classified) {
		s.logger.Warn("operation_rejected", "operation", op, "product_id", productID,
			"code", string(classified.Code), "error", err.Error(), "duration_ms", durationMS(duration))
		return
	}
	s.logger.Error("operation_failed", "operation", op, "product_id", productID,
		"error", err.Error(), "duration_ms", durationMS(duration))
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
