package billing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/zinsbuch/zinsbuch/internal/shared"
)

// Billable pairs a unit with its active tenancy, or with the last
// ended tenancy when the unit is vacant.
type Billable struct {
	Unit        Unit
	Tenancy     *Tenancy
	LastTenancy *Tenancy
}

// RepositoryPort defines data access for invoice generation.
type RepositoryPort interface {
	ListBillables(ctx context.Context, orgID int64, propertyIDs []int64) ([]Billable, error)
	CarryForward(ctx context.Context, orgID, unitID int64, period shared.Period) (decimal.Decimal, error)
	CreateRun(ctx context.Context, run InvoiceRun) (*InvoiceRun, error)
	FailRun(ctx context.Context, runID int64, cause string) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the writes that must happen atomically inside
// one persisted run.
type TxRepository interface {
	InsertInvoice(ctx context.Context, inv Invoice) (id int64, inserted bool, err error)
	InsertInvoiceLines(ctx context.Context, invoiceID int64, lines []InvoiceLine, batchSize int) (inserted, conflicts int, err error)
	CompleteRun(ctx context.Context, runID int64) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}
