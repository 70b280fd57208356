package settlement

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/zinsbuch/zinsbuch/internal/shared"
)

// RepositoryPort defines data access for owner settlements.
type RepositoryPort interface {
	ListOwners(ctx context.Context, orgID, propertyID int64) ([]Owner, error)
	// ListExpenses returns the property's uplift-eligible expenses for
	// the year, already grouped by category.
	ListExpenses(ctx context.Context, orgID, propertyID int64, year int) ([]CategoryExpense, error)
	// Prepayments returns each owner's Ist total for the year.
	Prepayments(ctx context.Context, orgID, propertyID int64, year int) (map[int64]decimal.Decimal, error)
	ListAssessments(ctx context.Context, orgID, propertyID int64, year int) ([]Assessment, error)
	BudgetConfig(ctx context.Context, orgID, propertyID int64, year int) (BudgetConfig, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the writes of one persisted settlement.
type TxRepository interface {
	InsertSettlement(ctx context.Context, s Settlement) (int64, error)
	InsertDetails(ctx context.Context, settlementID int64, owners []OwnerResult) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}
