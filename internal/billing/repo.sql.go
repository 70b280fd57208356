package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	platformdb "github.com/zinsbuch/zinsbuch/internal/platform/db"
	"github.com/zinsbuch/zinsbuch/internal/shared"
)

// Repository provides PostgreSQL backed persistence for billing.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListBillables returns every unit in scope with its active tenancy,
// plus the last ended tenancy for vacancy fallbacks.
func (r *Repository) ListBillables(ctx context.Context, orgID int64, propertyIDs []int64) ([]Billable, error) {
	rows, err := r.pool.Query(ctx, `SELECT u.id, u.org_id, u.property_id, u.category, u.area, u.vacancy_opex, u.vacancy_heating,
	t.id, t.tenant_id, t.monthly_rent, t.opex_advance, t.heating_advance, t.water_advance, t.extra_costs
FROM units u
LEFT JOIN tenancies t ON t.unit_id = u.id AND t.status = 'ACTIVE'
WHERE u.org_id = $1 AND u.property_id = ANY($2)
ORDER BY u.property_id, u.id`, orgID, propertyIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var billables []Billable
	var vacantUnitIDs []int64
	for rows.Next() {
		var b Billable
		var tenancyID, tenantID *int64
		var rent, opex, heating, water *decimal.Decimal
		var extraJSON []byte
		if err := rows.Scan(&b.Unit.ID, &b.Unit.OrgID, &b.Unit.PropertyID, &b.Unit.Category, &b.Unit.Area,
			&b.Unit.VacancyOpex, &b.Unit.VacancyHeating,
			&tenancyID, &tenantID, &rent, &opex, &heating, &water, &extraJSON); err != nil {
			return nil, err
		}
		if tenancyID != nil {
			t := Tenancy{
				ID:         *tenancyID,
				OrgID:      b.Unit.OrgID,
				PropertyID: b.Unit.PropertyID,
				UnitID:     b.Unit.ID,
				Status:     TenancyStatusActive,
			}
			if tenantID != nil {
				t.TenantID = *tenantID
			}
			if rent != nil {
				t.MonthlyRent = *rent
			}
			if opex != nil {
				t.OpexAdvance = *opex
			}
			if heating != nil {
				t.HeatingAdvance = *heating
			}
			if water != nil {
				t.WaterAdvance = *water
			}
			if len(extraJSON) > 0 {
				if err := json.Unmarshal(extraJSON, &t.ExtraCosts); err != nil {
					return nil, fmt.Errorf("billing: decode extra costs for tenancy %d: %w", t.ID, err)
				}
			}
			b.Tenancy = &t
		} else {
			vacantUnitIDs = append(vacantUnitIDs, b.Unit.ID)
		}
		billables = append(billables, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(vacantUnitIDs) > 0 {
		last, err := r.lastEndedTenancies(ctx, orgID, vacantUnitIDs)
		if err != nil {
			return nil, err
		}
		for i := range billables {
			if billables[i].Tenancy == nil {
				if t, ok := last[billables[i].Unit.ID]; ok {
					billables[i].LastTenancy = t
				}
			}
		}
	}
	return billables, nil
}

func (r *Repository) lastEndedTenancies(ctx context.Context, orgID int64, unitIDs []int64) (map[int64]*Tenancy, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT ON (unit_id) id, unit_id, opex_advance, heating_advance
FROM tenancies
WHERE org_id = $1 AND unit_id = ANY($2) AND status = 'ENDED'
ORDER BY unit_id, ended_at DESC NULLS LAST`, orgID, unitIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]*Tenancy)
	for rows.Next() {
		var t Tenancy
		if err := rows.Scan(&t.ID, &t.UnitID, &t.OpexAdvance, &t.HeatingAdvance); err != nil {
			return nil, err
		}
		t.OrgID = orgID
		t.Status = TenancyStatusEnded
		out[t.UnitID] = &t
	}
	return out, rows.Err()
}

// CarryForward returns the previous period's outstanding balance for a
// unit. Prior invoices already chain their own carry-forward, so only
// the immediately preceding period is consulted.
func (r *Repository) CarryForward(ctx context.Context, orgID, unitID int64, period shared.Period) (decimal.Decimal, error) {
	prev := period.Start().AddDate(0, -1, 0)
	var outstanding decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT total - paid_amount FROM invoices
WHERE org_id = $1 AND unit_id = $2 AND period_year = $3 AND period_month = $4 AND status <> 'PAID'`,
		orgID, unitID, prev.Year(), int(prev.Month())).Scan(&outstanding)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return outstanding, nil
}

// CreateRun inserts the run record that acts as the period mutex. The
// partial unique index over non-failed runs makes concurrent attempts
// fail with a unique violation, surfaced as a conflict.
func (r *Repository) CreateRun(ctx context.Context, run InvoiceRun) (*InvoiceRun, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO invoice_runs (org_id, period_year, period_month, reference, status, started_by, started_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		run.OrgID, run.Period.Year, int(run.Period.Month), run.Reference, RunStatusStarted, run.StartedBy, run.StartedAt).Scan(&run.ID)
	if err != nil {
		if platformdb.IsUniqueViolation(err, "") {
			return nil, fmt.Errorf("%w: invoice run for %s already completed", shared.ErrConflict, run.Period)
		}
		return nil, err
	}
	run.Status = RunStatusStarted
	return &run, nil
}

// FailRun marks a run failed outside the rolled-back transaction so
// the failure and its cause stay visible.
func (r *Repository) FailRun(ctx context.Context, runID int64, cause string) error {
	_, err := r.pool.Exec(ctx, `UPDATE invoice_runs SET status = $2, error = $3, finished_at = NOW() WHERE id = $1`,
		runID, RunStatusFailed, cause)
	return err
}

// RecordAudit writes an audit record outside any transaction, used for
// failure records that must survive the main rollback.
func (r *Repository) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, r.pool, log)
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return platformdb.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

// InsertInvoice inserts one header guarded by the (org, unit, period)
// uniqueness invariant. A conflicting insert is reported, not failed,
// which makes run retries idempotent.
func (t *txRepository) InsertInvoice(ctx context.Context, inv Invoice) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO invoices (org_id, property_id, unit_id, tenancy_id, period_year, period_month,
	rent_gross, rent_vat, opex_gross, opex_vat, heating_gross, heating_vat, water_gross, water_vat,
	other_gross, other_vat, carry_forward, total, paid_amount, status, due_date, vacancy, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,NOW())
ON CONFLICT DO NOTHING RETURNING id`,
		inv.OrgID, inv.PropertyID, inv.UnitID, nullID(inv.TenancyID), inv.Period.Year, int(inv.Period.Month),
		inv.RentGross, inv.RentVat, inv.OpexGross, inv.OpexVat, inv.HeatingGross, inv.HeatingVat,
		inv.WaterGross, inv.WaterVat, inv.OtherGross, inv.OtherVat, inv.CarryForward, inv.Total,
		inv.PaidAmount, inv.Status, inv.DueDate, inv.Vacancy).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// InsertInvoiceLines batch-inserts lines in bounded chunks, guarded by
// the (invoice, type, description) uniqueness invariant. Conflicts are
// counted, not fatal.
func (t *txRepository) InsertInvoiceLines(ctx context.Context, invoiceID int64, lines []InvoiceLine, batchSize int) (int, int, error) {
	if batchSize < 1 {
		batchSize = 500
	}
	inserted := 0
	for start := 0; start < len(lines); start += batchSize {
		end := start + batchSize
		if end > len(lines) {
			end = len(lines)
		}
		batch := &pgx.Batch{}
		for _, line := range lines[start:end] {
			batch.Queue(`INSERT INTO invoice_lines (invoice_id, line_type, description, net, vat_rate, amount, reference)
VALUES ($1,$2,$3,$4,$5,$6,$7) ON CONFLICT DO NOTHING`,
				invoiceID, line.Type, line.Description, line.Net, line.VatRate, line.Amount, line.Reference)
		}
		results := t.tx.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			tag, err := results.Exec()
			if err != nil {
				_ = results.Close()
				return inserted, len(lines) - inserted, err
			}
			inserted += int(tag.RowsAffected())
		}
		if err := results.Close(); err != nil {
			return inserted, len(lines) - inserted, err
		}
	}
	return inserted, len(lines) - inserted, nil
}

func (t *txRepository) CompleteRun(ctx context.Context, runID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoice_runs SET status = $2, finished_at = NOW() WHERE id = $1`,
		runID, RunStatusCompleted)
	return err
}

func (t *txRepository) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, t.tx, log)
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
