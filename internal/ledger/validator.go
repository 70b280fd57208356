package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/zinsbuch/zinsbuch/internal/money"
)

// imbalanceTolerance is the cent threshold above which the ledger
// counts as unbalanced.
var imbalanceTolerance = money.Cent

// BuildTrialBalance computes signed balances and the ledger-wide
// debit/credit check from aggregated account totals.
func BuildTrialBalance(totals []AccountTotal) *TrialBalance {
	tb := &TrialBalance{
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for _, total := range totals {
		tb.Accounts = append(tb.Accounts, AccountBalance{
			AccountTotal: total,
			Balance:      signedBalance(total),
		})
		tb.TotalDebit = tb.TotalDebit.Add(total.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(total.Credit)
	}
	tb.Unbalanced = tb.TotalDebit.Sub(tb.TotalCredit).Abs().GreaterThan(imbalanceTolerance)
	return tb
}

func signedBalance(total AccountTotal) decimal.Decimal {
	switch total.Class {
	case ClassLiability, ClassEquity, ClassRevenue:
		return total.Credit.Sub(total.Debit)
	default:
		return total.Debit.Sub(total.Credit)
	}
}

// negativeAssets filters asset accounts whose signed balance dropped
// below zero.
func negativeAssets(accounts []AccountBalance) []AccountBalance {
	var out []AccountBalance
	for _, account := range accounts {
		if account.Class == ClassAsset && account.Balance.IsNegative() {
			out = append(out, account)
		}
	}
	return out
}
