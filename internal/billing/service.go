package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zinsbuch/zinsbuch/internal/money"
	"github.com/zinsbuch/zinsbuch/internal/shared"
)

// MetricsPort is the slice of observability the billing service needs.
type MetricsPort interface {
	ObserveInvoiceRun(outcome string, invoices int)
	ObserveReconcileFailure()
}

// CacheInvalidator drops derived read models after ledger writes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, orgID int64) error
}

// Service generates invoices, as dry-run previews or persisted runs.
type Service struct {
	repo        RepositoryPort
	rules       Rules
	metrics     MetricsPort
	invalidator CacheInvalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService wires a billing service.
func NewService(repo RepositoryPort, rules Rules, metrics MetricsPort, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		rules:   rules,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// SetCacheInvalidator registers a read-model cache to drop after
// persisted runs. Optional.
func (s *Service) SetCacheInvalidator(inv CacheInvalidator) {
	s.invalidator = inv
}

// RunInput describes one invoice run request.
type RunInput struct {
	OrgID       int64
	Period      shared.Period
	PropertyIDs []int64
	ActorID     int64
	DryRun      bool
}

func (in RunInput) validate() error {
	if in.OrgID <= 0 {
		return fmt.Errorf("%w: org id required", shared.ErrValidation)
	}
	if !in.Period.Valid() {
		return fmt.Errorf("%w: invalid period %q", shared.ErrValidation, in.Period)
	}
	if len(in.PropertyIDs) == 0 {
		return fmt.Errorf("%w: at least one property required", shared.ErrValidation)
	}
	return nil
}

// RunResult reports what a run produced. LineConflicts counts duplicate
// line inserts that were skipped, never fatal.
type RunResult struct {
	Run           *InvoiceRun
	Drafts        []Draft
	Inserted      int
	Skipped       int
	LineConflicts int
	DryRun        bool
}

// Preview builds every invoice for the scope without touching storage.
// Units are built concurrently; the result order is deterministic.
func (s *Service) Preview(ctx context.Context, in RunInput) ([]Draft, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	billables, err := s.repo.ListBillables(ctx, in.OrgID, in.PropertyIDs)
	if err != nil {
		return nil, err
	}
	drafts, err := s.buildDrafts(ctx, in, billables)
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

// Run acquires the period mutex, builds all invoices and persists them
// in one transaction. Header inserts are idempotent: an invoice that
// already exists for its (org, unit, period) is skipped, never duplicated.
func (s *Service) Run(ctx context.Context, in RunInput) (*RunResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.DryRun {
		drafts, err := s.Preview(ctx, in)
		if err != nil {
			return nil, err
		}
		return &RunResult{Drafts: drafts, DryRun: true}, nil
	}

	// The run row commits before the main transaction so a later
	// failure can be recorded even after the rollback.
	run, err := s.repo.CreateRun(ctx, InvoiceRun{
		OrgID:     in.OrgID,
		Period:    in.Period,
		Reference: uuid.New(),
		StartedBy: in.ActorID,
		StartedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}

	result, err := s.executeRun(ctx, in, run)
	if err != nil {
		s.failRun(ctx, in, run, err)
		if s.metrics != nil {
			s.metrics.ObserveInvoiceRun("failed", 0)
			var rerr *money.ReconcileError
			if errors.As(err, &rerr) {
				s.metrics.ObserveReconcileFailure()
			}
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveInvoiceRun("completed", result.Inserted)
	}
	if s.invalidator != nil && result.Inserted > 0 {
		if err := s.invalidator.Invalidate(ctx, in.OrgID); err != nil {
			s.logger.Warn("invalidate caches after run", "org_id", in.OrgID, "error", err)
		}
	}
	s.logger.Info("invoice run completed",
		"run_id", run.ID,
		"org_id", in.OrgID,
		"period", in.Period.String(),
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"line_conflicts", result.LineConflicts)
	return result, nil
}

func (s *Service) executeRun(ctx context.Context, in RunInput, run *InvoiceRun) (*RunResult, error) {
	billables, err := s.repo.ListBillables(ctx, in.OrgID, in.PropertyIDs)
	if err != nil {
		return nil, err
	}
	drafts, err := s.buildDrafts(ctx, in, billables)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Run: run}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, draft := range drafts {
			id, inserted, err := tx.InsertInvoice(ctx, draft.Invoice)
			if err != nil {
				return fmt.Errorf("insert invoice unit %d: %w", draft.Invoice.UnitID, err)
			}
			if !inserted {
				result.Skipped++
				continue
			}
			_, conflicts, err := tx.InsertInvoiceLines(ctx, id, draft.Lines, s.rules.LineBatchSize)
			if err != nil {
				return fmt.Errorf("insert lines invoice %d: %w", id, err)
			}
			result.LineConflicts += conflicts
			result.Inserted++
		}
		if err := tx.CompleteRun(ctx, run.ID); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			OrgID:    in.OrgID,
			ActorID:  in.ActorID,
			Action:   "invoice_run.completed",
			Entity:   "invoice_run",
			EntityID: run.Reference.String(),
			Meta: map[string]any{
				"period":         in.Period.String(),
				"inserted":       result.Inserted,
				"skipped":        result.Skipped,
				"line_conflicts": result.LineConflicts,
			},
			At: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	run.Status = RunStatusCompleted
	return result, nil
}

// buildDrafts builds one draft per billable unit, parallel across
// units, then sorts by (property, unit) so output order never depends
// on scheduling.
func (s *Service) buildDrafts(ctx context.Context, in RunInput, billables []Billable) ([]Draft, error) {
	drafts := make([]Draft, len(billables))
	g, ctx := errgroup.WithContext(ctx)
	workers := s.rules.DryRunWorkers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, b := range billables {
		i, b := i, b
		g.Go(func() error {
			carry, err := s.repo.CarryForward(ctx, in.OrgID, b.Unit.ID, in.Period)
			if err != nil {
				return err
			}
			var draft Draft
			if b.Tenancy != nil {
				draft, err = BuildInvoice(*b.Tenancy, b.Unit, in.Period, s.rules, carry)
			} else {
				draft, err = BuildVacancyInvoice(b.Unit, b.LastTenancy, in.Period, s.rules, carry)
			}
			if err != nil {
				return fmt.Errorf("unit %d: %w", b.Unit.ID, err)
			}
			drafts[i] = draft
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(drafts, func(i, j int) bool {
		if drafts[i].Invoice.PropertyID != drafts[j].Invoice.PropertyID {
			return drafts[i].Invoice.PropertyID < drafts[j].Invoice.PropertyID
		}
		return drafts[i].Invoice.UnitID < drafts[j].Invoice.UnitID
	})
	return drafts, nil
}

func (s *Service) failRun(ctx context.Context, in RunInput, run *InvoiceRun, cause error) {
	if err := s.repo.FailRun(ctx, run.ID, cause.Error()); err != nil {
		s.logger.Error("mark invoice run failed", "run_id", run.ID, "error", err)
	}
	if err := s.repo.RecordAudit(ctx, shared.AuditLog{
		OrgID:    in.OrgID,
		ActorID:  in.ActorID,
		Action:   "invoice_run.failed",
		Entity:   "invoice_run",
		EntityID: run.Reference.String(),
		Meta: map[string]any{
			"period": in.Period.String(),
			"error":  cause.Error(),
		},
		At: s.now(),
	}); err != nil {
		s.logger.Error("record run failure audit", "run_id", run.ID, "error", err)
	}
	s.logger.Error("invoice run failed",
		"run_id", run.ID,
		"org_id", in.OrgID,
		"period", in.Period.String(),
		"error", cause)
}
