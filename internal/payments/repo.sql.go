package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/zinsbuch/zinsbuch/internal/billing"
	platformdb "github.com/zinsbuch/zinsbuch/internal/platform/db"
	"github.com/zinsbuch/zinsbuch/internal/shared"
)

// Repository provides PostgreSQL backed persistence for payments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetPayment(ctx context.Context, paymentID int64) (*Payment, error) {
	var p Payment
	err := r.pool.QueryRow(ctx, `SELECT id, org_id, tenant_id, amount, booked_at, reference, unapplied, note
FROM payments WHERE id = $1`, paymentID).Scan(
		&p.ID, &p.OrgID, &p.TenantID, &p.Amount, &p.BookedAt, &p.Reference, &p.Unapplied, &p.Note)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: payment %d", shared.ErrNotFound, paymentID)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) TenantOrg(ctx context.Context, tenantID int64) (int64, error) {
	var orgID int64
	err := r.pool.QueryRow(ctx, `SELECT org_id FROM tenants WHERE id = $1`, tenantID).Scan(&orgID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: tenant %d", shared.ErrNotFound, tenantID)
	}
	if err != nil {
		return 0, err
	}
	return orgID, nil
}

// ListOpenInvoices returns the tenant's open and partially paid
// invoices oldest first. Due date ascending with the id as tiebreak
// keeps the FIFO order stable.
func (r *Repository) ListOpenInvoices(ctx context.Context, orgID, tenantID int64) ([]billing.Invoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.id, i.org_id, i.property_id, i.unit_id, i.tenancy_id,
	i.period_year, i.period_month,
	i.rent_gross, i.rent_vat, i.opex_gross, i.opex_vat, i.heating_gross, i.heating_vat,
	i.water_gross, i.water_vat, i.other_gross, i.other_vat, i.carry_forward,
	i.total, i.paid_amount, i.status, i.due_date
FROM invoices i
JOIN tenancies t ON t.id = i.tenancy_id
WHERE i.org_id = $1 AND t.tenant_id = $2 AND i.status IN ('OPEN', 'PARTIAL')
ORDER BY i.due_date, i.id`, orgID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []billing.Invoice
	for rows.Next() {
		var inv billing.Invoice
		var year, month int
		if err := rows.Scan(&inv.ID, &inv.OrgID, &inv.PropertyID, &inv.UnitID, &inv.TenancyID,
			&year, &month,
			&inv.RentGross, &inv.RentVat, &inv.OpexGross, &inv.OpexVat, &inv.HeatingGross, &inv.HeatingVat,
			&inv.WaterGross, &inv.WaterVat, &inv.OtherGross, &inv.OtherVat, &inv.CarryForward,
			&inv.Total, &inv.PaidAmount, &inv.Status, &inv.DueDate); err != nil {
			return nil, err
		}
		inv.Period = shared.Period{Year: year, Month: time.Month(month)}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return platformdb.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) InsertAllocation(ctx context.Context, alloc Allocation) (int64, error) {
	var componentsJSON []byte
	if len(alloc.Components) > 0 {
		var err error
		componentsJSON, err = json.Marshal(alloc.Components)
		if err != nil {
			return 0, err
		}
	}
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO payment_allocations (org_id, payment_id, invoice_id, amount, kind, components, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id`,
		alloc.OrgID, alloc.PaymentID, alloc.InvoiceID, alloc.Amount, alloc.Kind, componentsJSON).Scan(&id)
	return id, err
}

func (t *txRepository) SumAllocations(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payment_allocations WHERE invoice_id = $1`,
		invoiceID).Scan(&sum)
	return sum, err
}

func (t *txRepository) UpdateInvoicePayment(ctx context.Context, invoiceID int64, paid decimal.Decimal, status billing.InvoiceStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoices SET paid_amount = $2, status = $3 WHERE id = $1`,
		invoiceID, paid, status)
	return err
}

func (t *txRepository) AnnotatePayment(ctx context.Context, paymentID int64, unapplied decimal.Decimal, note string) error {
	_, err := t.tx.Exec(ctx, `UPDATE payments SET unapplied = $2, note = $3 WHERE id = $1`,
		paymentID, unapplied, note)
	return err
}

func (t *txRepository) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, t.tx, log)
}
