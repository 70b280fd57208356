package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountClass drives the sign convention of an account's balance.
type AccountClass string

const (
	ClassAsset     AccountClass = "ASSET"
	ClassLiability AccountClass = "LIABILITY"
	ClassEquity    AccountClass = "EQUITY"
	ClassRevenue   AccountClass = "REVENUE"
	ClassExpense   AccountClass = "EXPENSE"
)

// AccountTotal is the aggregated debit/credit sum of one account.
type AccountTotal struct {
	AccountID int64
	Code      string
	Name      string
	Class     AccountClass
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// AccountBalance is an account total with its signed balance.
// Liability, equity and revenue accounts report credit minus debit;
// asset and expense accounts report debit minus credit.
type AccountBalance struct {
	AccountTotal
	Balance decimal.Decimal
}

// TrialBalance is the ledger-wide debit/credit consistency report.
type TrialBalance struct {
	Accounts    []AccountBalance
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Unbalanced  bool
}

// Query scopes a trial balance. PropertyID and the date range are
// optional; OrgID is mandatory.
type Query struct {
	OrgID      int64
	PropertyID int64
	From       *time.Time
	To         *time.Time
}

// EntryImbalance flags a journal entry whose own lines don't balance.
type EntryImbalance struct {
	EntryID    int64
	Reference  string
	BookedAt   time.Time
	Debit      decimal.Decimal
	Credit     decimal.Decimal
	Difference decimal.Decimal
}

// DailyCheckReport is the extended consistency pass over the ledger.
type DailyCheckReport struct {
	OrgID             int64
	RanAt             time.Time
	UnbalancedEntries []EntryImbalance
	NegativeAssets    []AccountBalance
}

// Clean reports whether the checks found nothing.
func (r DailyCheckReport) Clean() bool {
	return len(r.UnbalancedEntries) == 0 && len(r.NegativeAssets) == 0
}
