package settlement

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/zinsbuch/zinsbuch/internal/shared"
)

type memoryRepo struct {
	owners      []Owner
	expenses    []CategoryExpense
	budget      BudgetConfig
	prepaid     map[int64]decimal.Decimal
	assessments []Assessment

	settlements []Settlement
	details     map[int64][]OwnerResult
	audits      []shared.AuditLog
	persisted   map[string]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		prepaid:   map[int64]decimal.Decimal{},
		details:   map[int64][]OwnerResult{},
		persisted: map[string]bool{},
	}
}

func (m *memoryRepo) ListOwners(_ context.Context, _, _ int64) ([]Owner, error) {
	return m.owners, nil
}

func (m *memoryRepo) ListExpenses(_ context.Context, _, _ int64, _ int) ([]CategoryExpense, error) {
	return m.expenses, nil
}

func (m *memoryRepo) Prepayments(_ context.Context, _, _ int64, _ int) (map[int64]decimal.Decimal, error) {
	return m.prepaid, nil
}

func (m *memoryRepo) ListAssessments(_ context.Context, _, _ int64, _ int) ([]Assessment, error) {
	return m.assessments, nil
}

func (m *memoryRepo) BudgetConfig(_ context.Context, _, _ int64, _ int) (BudgetConfig, error) {
	return m.budget, nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, (*memoryTx)(m))
}

type memoryTx memoryRepo

func (m *memoryTx) InsertSettlement(_ context.Context, s Settlement) (int64, error) {
	key := fmt.Sprintf("%d/%d", s.PropertyID, s.Year)
	if m.persisted[key] {
		return 0, shared.ErrConflict
	}
	m.persisted[key] = true
	s.ID = int64(len(m.settlements) + 1)
	m.settlements = append(m.settlements, s)
	return s.ID, nil
}

func (m *memoryTx) InsertDetails(_ context.Context, settlementID int64, owners []OwnerResult) error {
	m.details[settlementID] = owners
	return nil
}

func (m *memoryTx) RecordAudit(_ context.Context, log shared.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

func testService(repo *memoryRepo) *Service {
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func calcInput() CalculateInput {
	return CalculateInput{OrgID: 1, PropertyID: 1, Year: 2025, ActorID: 42}
}

func TestServiceCalculate(t *testing.T) {
	repo := newMemoryRepo()
	repo.owners = threeOwners()
	repo.expenses = []CategoryExpense{{Category: "maintenance", Total: dec("1000.00")}}
	svc := testService(repo)

	result, err := svc.Calculate(context.Background(), calcInput())
	require.NoError(t, err)
	require.Len(t, result.Owners, 3)
	require.Empty(t, repo.settlements, "calculate must not persist")
}

func TestServiceCalculateValidation(t *testing.T) {
	svc := testService(newMemoryRepo())

	in := calcInput()
	in.OrgID = 0
	_, err := svc.Calculate(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestServicePersist(t *testing.T) {
	repo := newMemoryRepo()
	repo.owners = threeOwners()
	repo.expenses = []CategoryExpense{{Category: "maintenance", Total: dec("1000.00")}}
	svc := testService(repo)

	header, result, err := svc.Persist(context.Background(), calcInput())
	require.NoError(t, err)
	require.Equal(t, 3, header.OwnerCount)
	require.True(t, header.TotalExpenses.Equal(dec("1000.00")))
	require.Len(t, repo.details[header.ID], len(result.Owners))
	require.Len(t, repo.audits, 1)
	require.Equal(t, "settlement.persisted", repo.audits[0].Action)
}

func TestServicePersistTwiceConflicts(t *testing.T) {
	repo := newMemoryRepo()
	repo.owners = threeOwners()
	svc := testService(repo)

	_, _, err := svc.Persist(context.Background(), calcInput())
	require.NoError(t, err)

	_, _, err = svc.Persist(context.Background(), calcInput())
	require.ErrorIs(t, err, shared.ErrConflict)
}
