package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zinsbuch/zinsbuch/internal/billing"
	"github.com/zinsbuch/zinsbuch/internal/money"
	"github.com/zinsbuch/zinsbuch/internal/shared"
)

// MetricsPort is the slice of observability the allocator needs.
type MetricsPort interface {
	ObserveAllocation(strategy string)
}

// CacheInvalidator drops derived read models after ledger writes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, orgID int64) error
}

// Service applies incoming payments to open invoices.
type Service struct {
	repo        RepositoryPort
	metrics     MetricsPort
	invalidator CacheInvalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService wires a payment service.
func NewService(repo RepositoryPort, metrics MetricsPort, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// SetCacheInvalidator registers a read-model cache to drop after
// successful allocations. Optional.
func (s *Service) SetCacheInvalidator(inv CacheInvalidator) {
	s.invalidator = inv
}

// AllocateInput describes one allocation request. Strategy defaults to
// FIFO when empty.
type AllocateInput struct {
	OrgID     int64
	PaymentID int64
	TenantID  int64
	Amount    decimal.Decimal
	BookedAt  time.Time
	ActorID   int64
	Strategy  Strategy
}

// AllocateResult reports what was applied and what remained.
type AllocateResult struct {
	Applied     decimal.Decimal
	Unapplied   decimal.Decimal
	Allocations []Allocation
}

func (in AllocateInput) validate() error {
	if in.OrgID <= 0 {
		return fmt.Errorf("%w: org id required", shared.ErrValidation)
	}
	if in.TenantID <= 0 {
		return fmt.Errorf("%w: tenant id required", shared.ErrValidation)
	}
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: allocation amount must be positive", shared.ErrValidation)
	}
	return nil
}

// Allocate applies the payment to the tenant's open invoices using the
// selected strategy. Paid totals are re-summed from the stored
// allocation rows, never incremented in memory, so concurrent
// allocations converge on the correct amounts.
func (s *Service) Allocate(ctx context.Context, in AllocateInput) (*AllocateResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	if in.PaymentID > 0 {
		payment, err := s.repo.GetPayment(ctx, in.PaymentID)
		if err != nil {
			return nil, err
		}
		if payment.OrgID != in.OrgID {
			return nil, fmt.Errorf("%w: payment %d belongs to another organization", shared.ErrOwnership, in.PaymentID)
		}
	}
	tenantOrg, err := s.repo.TenantOrg(ctx, in.TenantID)
	if err != nil {
		return nil, err
	}
	if tenantOrg != in.OrgID {
		return nil, fmt.Errorf("%w: tenant %d belongs to another organization", shared.ErrOwnership, in.TenantID)
	}

	invoices, err := s.repo.ListOpenInvoices(ctx, in.OrgID, in.TenantID)
	if err != nil {
		return nil, err
	}
	plans, _, err := planAllocation(in.Strategy, invoices, in.Amount)
	if err != nil {
		return nil, err
	}

	totals := make(map[int64]decimal.Decimal, len(invoices))
	for _, inv := range invoices {
		totals[inv.ID] = inv.Total
	}

	result := &AllocateResult{Applied: decimal.Zero}
	for _, p := range plans {
		result.Applied = result.Applied.Add(p.Amount)
	}
	result.Unapplied = money.Round(in.Amount).Sub(result.Applied)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, p := range plans {
			alloc := Allocation{
				OrgID:      in.OrgID,
				PaymentID:  in.PaymentID,
				InvoiceID:  p.InvoiceID,
				Amount:     p.Amount,
				Kind:       p.Kind,
				Components: p.Components,
			}
			id, err := tx.InsertAllocation(ctx, alloc)
			if err != nil {
				return fmt.Errorf("insert allocation invoice %d: %w", p.InvoiceID, err)
			}
			alloc.ID = id

			paid, err := tx.SumAllocations(ctx, p.InvoiceID)
			if err != nil {
				return err
			}
			status := billing.InvoiceStatusPartial
			if paid.GreaterThanOrEqual(totals[p.InvoiceID]) {
				status = billing.InvoiceStatusPaid
			} else if !paid.IsPositive() {
				status = billing.InvoiceStatusOpen
			}
			if err := tx.UpdateInvoicePayment(ctx, p.InvoiceID, paid, status); err != nil {
				return err
			}
			result.Allocations = append(result.Allocations, alloc)
		}

		if in.PaymentID > 0 {
			note := ""
			if result.Unapplied.IsPositive() {
				note = fmt.Sprintf("unapplied remainder %s", result.Unapplied)
			}
			if err := tx.AnnotatePayment(ctx, in.PaymentID, result.Unapplied, note); err != nil {
				return err
			}
		}

		strategy := in.Strategy
		if strategy == "" {
			strategy = StrategyFIFO
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			OrgID:    in.OrgID,
			ActorID:  in.ActorID,
			Action:   "payment.allocated",
			Entity:   "payment",
			EntityID: strconv.FormatInt(in.PaymentID, 10),
			Meta: map[string]any{
				"strategy":  string(strategy),
				"applied":   result.Applied.String(),
				"unapplied": result.Unapplied.String(),
				"invoices":  len(result.Allocations),
			},
			At: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		strategy := in.Strategy
		if strategy == "" {
			strategy = StrategyFIFO
		}
		s.metrics.ObserveAllocation(string(strategy))
	}
	if s.invalidator != nil && len(result.Allocations) > 0 {
		if err := s.invalidator.Invalidate(ctx, in.OrgID); err != nil {
			s.logger.Warn("invalidate caches after allocation", "org_id", in.OrgID, "error", err)
		}
	}
	s.logger.Info("payment allocated",
		"payment_id", in.PaymentID,
		"tenant_id", in.TenantID,
		"applied", result.Applied.String(),
		"unapplied", result.Unapplied.String())
	return result, nil
}
