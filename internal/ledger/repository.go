package ledger

import "context"

// RepositoryPort defines data access for ledger checks.
type RepositoryPort interface {
	AccountTotals(ctx context.Context, q Query) ([]AccountTotal, error)
	// EntryImbalances returns journal entries whose own debit/credit
	// lines differ by more than one cent.
	EntryImbalances(ctx context.Context, orgID int64) ([]EntryImbalance, error)
}
