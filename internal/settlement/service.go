package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zinsbuch/zinsbuch/internal/shared"
)

// Service calculates and optionally persists owner settlements.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires a settlement service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// CalculateInput describes one settlement request.
type CalculateInput struct {
	OrgID      int64
	PropertyID int64
	Year       int
	ActorID    int64
}

func (in CalculateInput) validate() error {
	if in.OrgID <= 0 {
		return fmt.Errorf("%w: org id required", shared.ErrValidation)
	}
	if in.PropertyID <= 0 {
		return fmt.Errorf("%w: property id required", shared.ErrValidation)
	}
	if in.Year < 2000 || in.Year > 2200 {
		return fmt.Errorf("%w: implausible settlement year %d", shared.ErrValidation, in.Year)
	}
	return nil
}

// Calculate loads the settlement inputs and runs the calculator.
// Read-only and safely repeatable.
func (s *Service) Calculate(ctx context.Context, in CalculateInput) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	owners, err := s.repo.ListOwners(ctx, in.OrgID, in.PropertyID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.repo.ListExpenses(ctx, in.OrgID, in.PropertyID, in.Year)
	if err != nil {
		return nil, err
	}
	budget, err := s.repo.BudgetConfig(ctx, in.OrgID, in.PropertyID, in.Year)
	if err != nil {
		return nil, err
	}
	prepaid, err := s.repo.Prepayments(ctx, in.OrgID, in.PropertyID, in.Year)
	if err != nil {
		return nil, err
	}
	assessments, err := s.repo.ListAssessments(ctx, in.OrgID, in.PropertyID, in.Year)
	if err != nil {
		return nil, err
	}
	return Calculate(CalculationInput{
		PropertyID:  in.PropertyID,
		Year:        in.Year,
		Owners:      owners,
		Expenses:    expenses,
		Budget:      budget,
		Prepaid:     prepaid,
		Assessments: assessments,
	})
}

// Persist calculates the settlement and writes the header plus one
// detail row per owner in a single transaction. Persisting the same
// property and year twice is a conflict.
func (s *Service) Persist(ctx context.Context, in CalculateInput) (*Settlement, *Result, error) {
	result, err := s.Calculate(ctx, in)
	if err != nil {
		return nil, nil, err
	}

	header := Settlement{
		OrgID:            in.OrgID,
		PropertyID:       in.PropertyID,
		Year:             in.Year,
		OwnerCount:       len(result.Owners),
		TotalExpenses:    result.TotalExpenses,
		TotalReserve:     result.TotalReserve,
		TotalAssessments: result.TotalAssessments,
		CreatedBy:        in.ActorID,
		CreatedAt:        s.now(),
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertSettlement(ctx, header)
		if err != nil {
			return err
		}
		header.ID = id
		if err := tx.InsertDetails(ctx, id, result.Owners); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			OrgID:    in.OrgID,
			ActorID:  in.ActorID,
			Action:   "settlement.persisted",
			Entity:   "owner_settlement",
			EntityID: fmt.Sprintf("%d/%d", in.PropertyID, in.Year),
			Meta: map[string]any{
				"owners":         len(result.Owners),
				"total_expenses": result.TotalExpenses.String(),
			},
			At: s.now(),
		})
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("owner settlement persisted",
		"property_id", in.PropertyID,
		"year", in.Year,
		"owners", len(result.Owners))
	return &header, result, nil
}
