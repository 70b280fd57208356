package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestBuildTrialBalanceBalanced(t *testing.T) {
	tb := BuildTrialBalance([]AccountTotal{
		{AccountID: 1, Code: "2800", Class: ClassAsset, Debit: dec("1000.00"), Credit: dec("200.00")},
		{AccountID: 2, Code: "3300", Class: ClassLiability, Debit: dec("200.00"), Credit: dec("1000.00")},
	})
	require.False(t, tb.Unbalanced)
	require.True(t, tb.TotalDebit.Equal(dec("1200.00")))
	require.True(t, tb.TotalCredit.Equal(dec("1200.00")))
}

func TestBuildTrialBalanceUnbalancedBeyondOneCent(t *testing.T) {
	tb := BuildTrialBalance([]AccountTotal{
		{AccountID: 1, Class: ClassAsset, Debit: dec("100.02"), Credit: decimal.Zero},
		{AccountID: 2, Class: ClassRevenue, Debit: decimal.Zero, Credit: dec("100.00")},
	})
	require.True(t, tb.Unbalanced)
}

func TestBuildTrialBalanceOneCentTolerated(t *testing.T) {
	tb := BuildTrialBalance([]AccountTotal{
		{AccountID: 1, Class: ClassAsset, Debit: dec("100.01"), Credit: decimal.Zero},
		{AccountID: 2, Class: ClassRevenue, Debit: decimal.Zero, Credit: dec("100.00")},
	})
	require.False(t, tb.Unbalanced)
}

func TestSignedBalancePerClass(t *testing.T) {
	tb := BuildTrialBalance([]AccountTotal{
		{AccountID: 1, Class: ClassAsset, Debit: dec("300.00"), Credit: dec("100.00")},
		{AccountID: 2, Class: ClassExpense, Debit: dec("50.00"), Credit: dec("10.00")},
		{AccountID: 3, Class: ClassLiability, Debit: dec("20.00"), Credit: dec("120.00")},
		{AccountID: 4, Class: ClassEquity, Debit: dec("0.00"), Credit: dec("80.00")},
		{AccountID: 5, Class: ClassRevenue, Debit: dec("10.00"), Credit: dec("70.00")},
	})
	require.True(t, tb.Accounts[0].Balance.Equal(dec("200.00")))
	require.True(t, tb.Accounts[1].Balance.Equal(dec("40.00")))
	require.True(t, tb.Accounts[2].Balance.Equal(dec("100.00")))
	require.True(t, tb.Accounts[3].Balance.Equal(dec("80.00")))
	require.True(t, tb.Accounts[4].Balance.Equal(dec("60.00")))
}

func TestNegativeAssetsOnlyAssets(t *testing.T) {
	tb := BuildTrialBalance([]AccountTotal{
		{AccountID: 1, Code: "2800", Class: ClassAsset, Debit: dec("100.00"), Credit: dec("150.00")},
		{AccountID: 2, Code: "3300", Class: ClassLiability, Debit: dec("150.00"), Credit: dec("100.00")},
		{AccountID: 3, Code: "2810", Class: ClassAsset, Debit: dec("200.00"), Credit: dec("50.00")},
	})
	flagged := negativeAssets(tb.Accounts)
	require.Len(t, flagged, 1)
	require.Equal(t, "2800", flagged[0].Code)
}
