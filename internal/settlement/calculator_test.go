package settlement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/zinsbuch/zinsbuch/internal/shared"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func threeOwners() []Owner {
	return []Owner{
		{ID: 1, UnitID: 10, Name: "Huber", Share: dec("50"), Area: dec("120")},
		{ID: 2, UnitID: 11, Name: "Maier", Share: dec("30"), Area: dec("80")},
		{ID: 3, UnitID: 12, Name: "Bauer", Share: dec("20"), Area: dec("50")},
	}
}

func TestCalculateNoOwners(t *testing.T) {
	_, err := Calculate(CalculationInput{PropertyID: 1, Year: 2025})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCalculateZeroTotalShare(t *testing.T) {
	owners := []Owner{
		{ID: 1, Share: decimal.Zero},
		{ID: 2, Share: decimal.Zero},
	}
	_, err := Calculate(CalculationInput{PropertyID: 1, Year: 2025, Owners: owners})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCalculateSharesAllocation(t *testing.T) {
	result, err := Calculate(CalculationInput{
		PropertyID: 1,
		Year:       2025,
		Owners:     threeOwners(),
		Expenses:   []CategoryExpense{{Category: "maintenance", Total: dec("1000.00")}},
	})
	require.NoError(t, err)
	require.Len(t, result.Owners, 3)

	require.True(t, result.Owners[0].Soll.Equal(dec("500.00")))
	require.True(t, result.Owners[1].Soll.Equal(dec("300.00")))
	require.True(t, result.Owners[2].Soll.Equal(dec("200.00")))

	sum := decimal.Zero
	for _, owner := range result.Owners {
		sum = sum.Add(owner.Soll)
	}
	require.True(t, sum.Equal(dec("1000.00")))
}

func TestCalculateExactSumUnderAwkwardShares(t *testing.T) {
	owners := []Owner{
		{ID: 1, UnitID: 10, Share: dec("1")},
		{ID: 2, UnitID: 11, Share: dec("1")},
		{ID: 3, UnitID: 12, Share: dec("1")},
	}
	result, err := Calculate(CalculationInput{
		PropertyID: 1,
		Year:       2025,
		Owners:     owners,
		Expenses:   []CategoryExpense{{Category: "maintenance", Total: dec("100.00")}},
	})
	require.NoError(t, err)

	sum := decimal.Zero
	for _, owner := range result.Owners {
		sum = sum.Add(owner.Soll)
	}
	require.True(t, sum.Equal(dec("100.00")), sum.String())
}

func TestCalculateAreaAllocation(t *testing.T) {
	result, err := Calculate(CalculationInput{
		PropertyID: 1,
		Year:       2025,
		Owners:     threeOwners(),
		Expenses:   []CategoryExpense{{Category: "heating", Total: dec("500.00")}},
		Budget: BudgetConfig{
			Keys: map[string]AllocationKey{"heating": KeyArea},
		},
	})
	require.NoError(t, err)
	// 120/250 of 500 = 240.
	require.True(t, result.Owners[0].Soll.Equal(dec("240.00")), result.Owners[0].Soll.String())

	sum := decimal.Zero
	for _, owner := range result.Owners {
		sum = sum.Add(owner.Soll)
	}
	require.True(t, sum.Equal(dec("500.00")))
}

func TestCalculateUnitsAllocation(t *testing.T) {
	result, err := Calculate(CalculationInput{
		PropertyID: 1,
		Year:       2025,
		Owners:     threeOwners(),
		Expenses:   []CategoryExpense{{Category: "elevator", Total: dec("99.00")}},
		Budget: BudgetConfig{
			Keys: map[string]AllocationKey{"elevator": KeyUnits},
		},
	})
	require.NoError(t, err)
	for _, owner := range result.Owners {
		require.True(t, owner.Soll.Equal(dec("33.00")), owner.Soll.String())
	}
}

func TestCalculateReserveCategoriesTagged(t *testing.T) {
	result, err := Calculate(CalculationInput{
		PropertyID: 1,
		Year:       2025,
		Owners:     threeOwners(),
		Expenses: []CategoryExpense{
			{Category: "maintenance", Total: dec("600.00")},
			{Category: "reserve_levy", Total: dec("400.00")},
		},
		Budget: BudgetConfig{
			ReserveCategories: map[string]bool{"reserve_levy": true},
		},
	})
	require.NoError(t, err)
	require.True(t, result.TotalReserve.Equal(dec("400.00")))
	require.True(t, result.TotalExpenses.Equal(dec("1000.00")))
	// Reserve portion counts inside Soll and is tagged separately.
	require.True(t, result.Owners[0].Soll.Equal(dec("500.00")))
	require.True(t, result.Owners[0].Reserve.Equal(dec("200.00")))
}

func TestCalculateSaldoAgainstPrepayments(t *testing.T) {
	result, err := Calculate(CalculationInput{
		PropertyID: 1,
		Year:       2025,
		Owners:     threeOwners(),
		Expenses:   []CategoryExpense{{Category: "maintenance", Total: dec("1000.00")}},
		Prepaid: map[int64]decimal.Decimal{
			1: dec("600.00"),
			2: dec("300.00"),
		},
	})
	require.NoError(t, err)
	require.True(t, result.Owners[0].Saldo.Equal(dec("-100.00")), "credit saldo expected")
	require.True(t, result.Owners[1].Saldo.IsZero())
	require.True(t, result.Owners[2].Saldo.Equal(dec("200.00")))
}

func TestCalculateAssessmentsSeparateTotal(t *testing.T) {
	result, err := Calculate(CalculationInput{
		PropertyID:  1,
		Year:        2025,
		Owners:      threeOwners(),
		Assessments: []Assessment{{ID: 1, Description: "Fassade", Total: dec("10000.00")}},
	})
	require.NoError(t, err)
	require.True(t, result.TotalAssessments.Equal(dec("10000.00")))
	require.True(t, result.Owners[0].Assessments.Equal(dec("5000.00")))
	require.True(t, result.Owners[0].Soll.IsZero(), "assessments stay out of Soll")
}

func TestCalculateSkipsNonPositiveExpenses(t *testing.T) {
	result, err := Calculate(CalculationInput{
		PropertyID: 1,
		Year:       2025,
		Owners:     threeOwners(),
		Expenses: []CategoryExpense{
			{Category: "maintenance", Total: dec("0.00")},
			{Category: "credit", Total: dec("-20.00")},
		},
	})
	require.NoError(t, err)
	require.True(t, result.TotalExpenses.IsZero())
	for _, owner := range result.Owners {
		require.True(t, owner.Soll.IsZero())
	}
}
