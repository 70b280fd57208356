package settlement

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/zinsbuch/zinsbuch/internal/money"
	"github.com/zinsbuch/zinsbuch/internal/shared"
)

// CalculationInput carries everything a settlement needs, already
// scoped and loaded. The calculator itself is pure.
type CalculationInput struct {
	PropertyID  int64
	Year        int
	Owners      []Owner
	Expenses    []CategoryExpense
	Budget      BudgetConfig
	Prepaid     map[int64]decimal.Decimal
	Assessments []Assessment
}

// Calculate apportions every expense category across the owners using
// the category's allocation key, sums each owner's Soll, subtracts the
// prepayments and apportions special assessments by ownership share.
func Calculate(in CalculationInput) (*Result, error) {
	if len(in.Owners) == 0 {
		return nil, fmt.Errorf("%w: no owners configured for property %d", shared.ErrValidation, in.PropertyID)
	}
	totalShare := decimal.Zero
	totalArea := decimal.Zero
	for _, owner := range in.Owners {
		totalShare = totalShare.Add(owner.Share)
		totalArea = totalArea.Add(owner.Area)
	}
	if !totalShare.IsPositive() {
		return nil, fmt.Errorf("%w: total ownership share must be positive", shared.ErrValidation)
	}

	results := make([]OwnerResult, len(in.Owners))
	index := make(map[string]int, len(in.Owners))
	for i, owner := range in.Owners {
		results[i] = OwnerResult{
			Owner:      owner,
			Categories: map[string]decimal.Decimal{},
		}
		index[ownerKey(owner)] = i
	}

	out := &Result{PropertyID: in.PropertyID, Year: in.Year}
	for _, expense := range in.Expenses {
		if !expense.Total.IsPositive() {
			continue
		}
		key := in.Budget.KeyFor(expense.Category)
		shares, err := ownerShares(in.Owners, key, totalShare, totalArea)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", expense.Category, err)
		}
		reserve := in.Budget.ReserveCategories[expense.Category]
		for _, portion := range money.Distribute(expense.Total, shares) {
			i := index[portion.Key]
			results[i].Soll = results[i].Soll.Add(portion.Amount)
			results[i].Categories[expense.Category] = results[i].Categories[expense.Category].Add(portion.Amount)
			if reserve {
				results[i].Reserve = results[i].Reserve.Add(portion.Amount)
			}
		}
		out.TotalExpenses = out.TotalExpenses.Add(money.Round(expense.Total))
		if reserve {
			out.TotalReserve = out.TotalReserve.Add(money.Round(expense.Total))
		}
	}

	// Special assessments always follow ownership shares and accumulate
	// on their own per-owner total.
	if len(in.Assessments) > 0 {
		shares, err := ownerShares(in.Owners, KeyShares, totalShare, totalArea)
		if err != nil {
			return nil, err
		}
		for _, assessment := range in.Assessments {
			if !assessment.Total.IsPositive() {
				continue
			}
			for _, portion := range money.Distribute(assessment.Total, shares) {
				i := index[portion.Key]
				results[i].Assessments = results[i].Assessments.Add(portion.Amount)
			}
			out.TotalAssessments = out.TotalAssessments.Add(money.Round(assessment.Total))
		}
	}

	for i := range results {
		results[i].Ist = money.Round(in.Prepaid[results[i].Owner.ID])
		results[i].Saldo = results[i].Soll.Sub(results[i].Ist)
	}
	out.Owners = results
	return out, nil
}

func ownerKey(owner Owner) string {
	return fmt.Sprintf("%d/%d", owner.ID, owner.UnitID)
}

// ownerShares builds the weighted share list for one allocation key.
func ownerShares(owners []Owner, key AllocationKey, totalShare, totalArea decimal.Decimal) ([]money.Share, error) {
	shares := make([]money.Share, len(owners))
	switch key {
	case KeyArea:
		if !totalArea.IsPositive() {
			return nil, fmt.Errorf("%w: total area must be positive for area allocation", shared.ErrValidation)
		}
		for i, owner := range owners {
			shares[i] = money.Share{Key: ownerKey(owner), Ratio: owner.Area.Div(totalArea)}
		}
	case KeyUnits:
		each := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(owners))))
		for i, owner := range owners {
			shares[i] = money.Share{Key: ownerKey(owner), Ratio: each}
		}
	case KeyShares:
		for i, owner := range owners {
			shares[i] = money.Share{Key: ownerKey(owner), Ratio: owner.Share.Div(totalShare)}
		}
	default:
		return nil, fmt.Errorf("%w: unknown allocation key %q", shared.ErrValidation, key)
	}
	return shares, nil
}
