package ledger

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for the ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AccountTotals aggregates debit and credit sums per account within
// the optional property and date scope.
func (r *Repository) AccountTotals(ctx context.Context, q Query) ([]AccountTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, a.code, a.name, a.class,
	COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM accounts a
LEFT JOIN journal_lines l ON l.account_id = a.id
LEFT JOIN journal_entries e ON e.id = l.entry_id
WHERE a.org_id = $1
  AND ($2::bigint = 0 OR e.property_id = $2)
  AND ($3::timestamptz IS NULL OR e.booked_at >= $3)
  AND ($4::timestamptz IS NULL OR e.booked_at < $4)
GROUP BY a.id, a.code, a.name, a.class
ORDER BY a.code`, q.OrgID, q.PropertyID, q.From, q.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []AccountTotal
	for rows.Next() {
		var t AccountTotal
		if err := rows.Scan(&t.AccountID, &t.Code, &t.Name, &t.Class, &t.Debit, &t.Credit); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// EntryImbalances flags journal entries whose own lines don't balance.
func (r *Repository) EntryImbalances(ctx context.Context, orgID int64) ([]EntryImbalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT e.id, e.reference, e.booked_at,
	COALESCE(SUM(l.debit), 0) AS debit, COALESCE(SUM(l.credit), 0) AS credit
FROM journal_entries e
JOIN journal_lines l ON l.entry_id = e.id
WHERE e.org_id = $1
GROUP BY e.id, e.reference, e.booked_at
HAVING ABS(COALESCE(SUM(l.debit), 0) - COALESCE(SUM(l.credit), 0)) > 0.01
ORDER BY e.booked_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var imbalances []EntryImbalance
	for rows.Next() {
		var im EntryImbalance
		if err := rows.Scan(&im.EntryID, &im.Reference, &im.BookedAt, &im.Debit, &im.Credit); err != nil {
			return nil, err
		}
		im.Difference = im.Debit.Sub(im.Credit)
		imbalances = append(imbalances, im)
	}
	return imbalances, rows.Err()
}
