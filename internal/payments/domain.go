package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

// Strategy names one of the two allocation behaviors.
type Strategy string

const (
	// StrategyFIFO settles whole invoices oldest first.
	StrategyFIFO Strategy = "fifo"
	// StrategyComponent splits across cost components in priority order.
	StrategyComponent Strategy = "component"
)

// AllocationKind distinguishes whole-invoice rows from component-split rows.
type AllocationKind string

const (
	KindWhole     AllocationKind = "whole"
	KindComponent AllocationKind = "component"
)

// Payment is an incoming sum of money from a tenant. The core treats
// the amount as given; sign validation belongs to the caller.
type Payment struct {
	ID        int64
	OrgID     int64
	TenantID  int64
	Amount    decimal.Decimal
	BookedAt  time.Time
	Reference string
	Unapplied decimal.Decimal
	Note      string
}

// Allocation links a payment to an invoice with an applied amount.
// Allocations are append-only; paid totals are always re-summed from
// the full row set.
type Allocation struct {
	ID         int64
	OrgID      int64
	PaymentID  int64
	InvoiceID  int64
	Amount     decimal.Decimal
	Kind       AllocationKind
	Components []ComponentShare
	CreatedAt  time.Time
}

// ComponentShare is the per-component breakdown of a component-split
// allocation, kept for reporting.
type ComponentShare struct {
	Component string
	Net       decimal.Decimal
	Vat       decimal.Decimal
	Gross     decimal.Decimal
}
