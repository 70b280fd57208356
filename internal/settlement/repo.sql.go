package settlement

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	platformdb "github.com/zinsbuch/zinsbuch/internal/platform/db"
	"github.com/zinsbuch/zinsbuch/internal/shared"
)

// Repository provides PostgreSQL backed persistence for settlements.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListOwners(ctx context.Context, orgID, propertyID int64) ([]Owner, error) {
	rows, err := r.pool.Query(ctx, `SELECT o.id, o.org_id, o.unit_id, o.name, o.ownership_share, u.area
FROM owners o
JOIN units u ON u.id = o.unit_id
WHERE o.org_id = $1 AND u.property_id = $2
ORDER BY o.unit_id, o.id`, orgID, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []Owner
	for rows.Next() {
		var o Owner
		if err := rows.Scan(&o.ID, &o.OrgID, &o.UnitID, &o.Name, &o.Share, &o.Area); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

func (r *Repository) ListExpenses(ctx context.Context, orgID, propertyID int64, year int) ([]CategoryExpense, error) {
	rows, err := r.pool.Query(ctx, `SELECT category, SUM(amount)
FROM property_expenses
WHERE org_id = $1 AND property_id = $2 AND year = $3 AND uplift_eligible
GROUP BY category
ORDER BY category`, orgID, propertyID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []CategoryExpense
	for rows.Next() {
		var e CategoryExpense
		if err := rows.Scan(&e.Category, &e.Total); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *Repository) Prepayments(ctx context.Context, orgID, propertyID int64, year int) (map[int64]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT owner_id, SUM(amount)
FROM owner_prepayments
WHERE org_id = $1 AND property_id = $2 AND year = $3
GROUP BY owner_id`, orgID, propertyID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]decimal.Decimal{}
	for rows.Next() {
		var ownerID int64
		var sum decimal.Decimal
		if err := rows.Scan(&ownerID, &sum); err != nil {
			return nil, err
		}
		out[ownerID] = sum
	}
	return out, rows.Err()
}

func (r *Repository) ListAssessments(ctx context.Context, orgID, propertyID int64, year int) ([]Assessment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, description, total
FROM special_assessments
WHERE org_id = $1 AND property_id = $2 AND year = $3 AND status = 'APPROVED'
ORDER BY id`, orgID, propertyID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []Assessment
	for rows.Next() {
		var a Assessment
		if err := rows.Scan(&a.ID, &a.Description, &a.Total); err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}

func (r *Repository) BudgetConfig(ctx context.Context, orgID, propertyID int64, year int) (BudgetConfig, error) {
	rows, err := r.pool.Query(ctx, `SELECT category, allocation_key, reserve_fund
FROM budget_categories
WHERE org_id = $1 AND property_id = $2 AND year = $3`, orgID, propertyID, year)
	if err != nil {
		return BudgetConfig{}, err
	}
	defer rows.Close()

	config := BudgetConfig{
		Keys:              map[string]AllocationKey{},
		ReserveCategories: map[string]bool{},
	}
	for rows.Next() {
		var category, key string
		var reserve bool
		if err := rows.Scan(&category, &key, &reserve); err != nil {
			return BudgetConfig{}, err
		}
		config.Keys[category] = AllocationKey(key)
		if reserve {
			config.ReserveCategories[category] = true
		}
	}
	return config, rows.Err()
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return platformdb.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

// InsertSettlement writes the header, guarded by the unique
// (org, property, year) constraint. A second persist for the same year
// surfaces as a conflict.
func (t *txRepository) InsertSettlement(ctx context.Context, s Settlement) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO owner_settlements (org_id, property_id, year, owner_count, total_expenses, total_reserve, total_assessments, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW()) RETURNING id`,
		s.OrgID, s.PropertyID, s.Year, s.OwnerCount, s.TotalExpenses, s.TotalReserve, s.TotalAssessments, s.CreatedBy).Scan(&id)
	if err != nil {
		if platformdb.IsUniqueViolation(err, "") {
			return 0, fmt.Errorf("%w: settlement for property %d year %d already persisted", shared.ErrConflict, s.PropertyID, s.Year)
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepository) InsertDetails(ctx context.Context, settlementID int64, owners []OwnerResult) error {
	batch := &pgx.Batch{}
	for _, owner := range owners {
		categoriesJSON, err := json.Marshal(owner.Categories)
		if err != nil {
			return err
		}
		batch.Queue(`INSERT INTO owner_settlement_details (settlement_id, owner_id, unit_id, ownership_share, soll, ist, saldo, reserve, assessments, categories)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			settlementID, owner.Owner.ID, owner.Owner.UnitID, owner.Owner.Share,
			owner.Soll, owner.Ist, owner.Saldo, owner.Reserve, owner.Assessments, categoriesJSON)
	}
	results := t.tx.SendBatch(ctx, batch)
	for range owners {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
	}
	return results.Close()
}

func (t *txRepository) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, t.tx, log)
}
