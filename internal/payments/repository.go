package payments

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/zinsbuch/zinsbuch/internal/billing"
	"github.com/zinsbuch/zinsbuch/internal/shared"
)

// RepositoryPort defines data access for payment allocation.
type RepositoryPort interface {
	GetPayment(ctx context.Context, paymentID int64) (*Payment, error)
	TenantOrg(ctx context.Context, tenantID int64) (int64, error)
	ListOpenInvoices(ctx context.Context, orgID, tenantID int64) ([]billing.Invoice, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the writes of one allocation, applied atomically.
type TxRepository interface {
	InsertAllocation(ctx context.Context, alloc Allocation) (int64, error)
	// SumAllocations re-sums every allocation row for the invoice from
	// storage, including the ones written in this transaction.
	SumAllocations(ctx context.Context, invoiceID int64) (decimal.Decimal, error)
	UpdateInvoicePayment(ctx context.Context, invoiceID int64, paid decimal.Decimal, status billing.InvoiceStatus) error
	AnnotatePayment(ctx context.Context, paymentID int64, unapplied decimal.Decimal, note string) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}
