package settlement

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllocationKey selects how a cost category is apportioned across owners.
type AllocationKey string

const (
	KeyArea   AllocationKey = "area"
	KeyUnits  AllocationKey = "units"
	KeyShares AllocationKey = "shares"
)

// Owner is one unit-owner record in a condominium association.
type Owner struct {
	ID     int64
	OrgID  int64
	UnitID int64
	Name   string
	// Share is the ownership share used as the default allocation key.
	Share decimal.Decimal
	Area  decimal.Decimal
}

// CategoryExpense is the year total of one uplift-eligible cost category.
type CategoryExpense struct {
	Category string
	Total    decimal.Decimal
}

// Assessment is an approved special assessment for the year.
type Assessment struct {
	ID          int64
	Description string
	Total       decimal.Decimal
}

// BudgetConfig is the externally supplied per-category configuration.
type BudgetConfig struct {
	// Keys maps category to allocation key; missing entries default to
	// ownership shares.
	Keys map[string]AllocationKey
	// ReserveCategories marks categories funding the reserve fund.
	ReserveCategories map[string]bool
}

// KeyFor resolves the allocation key for a category.
func (c BudgetConfig) KeyFor(category string) AllocationKey {
	if key, ok := c.Keys[category]; ok {
		return key
	}
	return KeyShares
}

// OwnerResult is the per-owner outcome of one settlement.
type OwnerResult struct {
	Owner       Owner
	Soll        decimal.Decimal
	Ist         decimal.Decimal
	Saldo       decimal.Decimal
	Reserve     decimal.Decimal
	Assessments decimal.Decimal
	Categories  map[string]decimal.Decimal
}

// Result is one calculated property+year settlement.
type Result struct {
	PropertyID       int64
	Year             int
	Owners           []OwnerResult
	TotalExpenses    decimal.Decimal
	TotalReserve     decimal.Decimal
	TotalAssessments decimal.Decimal
}

// Settlement is the persisted header of a settlement.
type Settlement struct {
	ID               int64
	OrgID            int64
	PropertyID       int64
	Year             int
	OwnerCount       int
	TotalExpenses    decimal.Decimal
	TotalReserve     decimal.Decimal
	TotalAssessments decimal.Decimal
	CreatedBy        int64
	CreatedAt        time.Time
}
