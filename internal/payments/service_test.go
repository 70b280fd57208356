package payments

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/zinsbuch/zinsbuch/internal/billing"
	"github.com/zinsbuch/zinsbuch/internal/shared"
)

type memoryRepo struct {
	payments map[int64]*Payment
	tenants  map[int64]int64
	invoices map[int64]*billing.Invoice
	order    []int64

	allocations []Allocation
	nextAllocID int64
	audits      []shared.AuditLog
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		payments: map[int64]*Payment{},
		tenants:  map[int64]int64{},
		invoices: map[int64]*billing.Invoice{},
	}
}

func (m *memoryRepo) addInvoice(inv billing.Invoice) {
	m.invoices[inv.ID] = &inv
	m.order = append(m.order, inv.ID)
}

func (m *memoryRepo) GetPayment(_ context.Context, paymentID int64) (*Payment, error) {
	p, ok := m.payments[paymentID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) TenantOrg(_ context.Context, tenantID int64) (int64, error) {
	org, ok := m.tenants[tenantID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return org, nil
}

func (m *memoryRepo) ListOpenInvoices(_ context.Context, orgID, _ int64) ([]billing.Invoice, error) {
	var out []billing.Invoice
	for _, id := range m.order {
		inv := m.invoices[id]
		if inv.OrgID == orgID && inv.Status != billing.InvoiceStatusPaid {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, (*memoryTx)(m))
}

type memoryTx memoryRepo

func (m *memoryTx) InsertAllocation(_ context.Context, alloc Allocation) (int64, error) {
	m.nextAllocID++
	alloc.ID = m.nextAllocID
	m.allocations = append(m.allocations, alloc)
	return alloc.ID, nil
}

func (m *memoryTx) SumAllocations(_ context.Context, invoiceID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, alloc := range m.allocations {
		if alloc.InvoiceID == invoiceID {
			sum = sum.Add(alloc.Amount)
		}
	}
	return sum, nil
}

func (m *memoryTx) UpdateInvoicePayment(_ context.Context, invoiceID int64, paid decimal.Decimal, status billing.InvoiceStatus) error {
	inv := m.invoices[invoiceID]
	inv.PaidAmount = paid
	inv.Status = status
	return nil
}

func (m *memoryTx) AnnotatePayment(_ context.Context, paymentID int64, unapplied decimal.Decimal, note string) error {
	if p, ok := m.payments[paymentID]; ok {
		p.Unapplied = unapplied
		p.Note = note
	}
	return nil
}

func (m *memoryTx) RecordAudit(_ context.Context, log shared.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

func testService(repo *memoryRepo) *Service {
	return NewService(repo, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func fixtureRepo() *memoryRepo {
	repo := newMemoryRepo()
	repo.tenants[9] = 1
	repo.payments[100] = &Payment{ID: 100, OrgID: 1, TenantID: 9, Amount: dec("800.00")}
	return repo
}

func allocInput(amount string) AllocateInput {
	return AllocateInput{
		OrgID:     1,
		PaymentID: 100,
		TenantID:  9,
		Amount:    dec(amount),
		BookedAt:  time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		ActorID:   42,
	}
}

func TestAllocateFIFOOldestInvoiceSettled(t *testing.T) {
	repo := fixtureRepo()
	repo.addInvoice(openInvoice(1, "800.00", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
	repo.addInvoice(openInvoice(2, "600.00", time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)))
	svc := testService(repo)

	result, err := svc.Allocate(context.Background(), allocInput("800.00"))
	require.NoError(t, err)
	require.True(t, result.Applied.Equal(dec("800.00")))
	require.True(t, result.Unapplied.IsZero())
	require.Len(t, repo.allocations, 1)
	require.True(t, repo.allocations[0].Amount.Equal(dec("800.00")))

	require.Equal(t, billing.InvoiceStatusPaid, repo.invoices[1].Status)
	require.True(t, repo.invoices[1].PaidAmount.Equal(dec("800.00")))
	require.Equal(t, billing.InvoiceStatusOpen, repo.invoices[2].Status)
	require.True(t, repo.invoices[2].PaidAmount.IsZero())
}

func TestAllocateOverpaymentAnnotated(t *testing.T) {
	repo := fixtureRepo()
	repo.addInvoice(openInvoice(1, "500.00", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
	svc := testService(repo)

	result, err := svc.Allocate(context.Background(), allocInput("700.00"))
	require.NoError(t, err)
	require.True(t, result.Applied.Equal(dec("500.00")))
	require.True(t, result.Unapplied.Equal(dec("200.00")))
	require.Equal(t, billing.InvoiceStatusPaid, repo.invoices[1].Status)
	require.True(t, repo.payments[100].Unapplied.Equal(dec("200.00")))
	require.Contains(t, repo.payments[100].Note, "200")
}

func TestAllocateUnderpaymentPartial(t *testing.T) {
	repo := fixtureRepo()
	repo.addInvoice(openInvoice(1, "1000.00", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
	svc := testService(repo)

	result, err := svc.Allocate(context.Background(), allocInput("300.00"))
	require.NoError(t, err)
	require.True(t, result.Applied.Equal(dec("300.00")))
	require.Equal(t, billing.InvoiceStatusPartial, repo.invoices[1].Status)
	require.True(t, repo.invoices[1].PaidAmount.Equal(dec("300.00")))
}

func TestAllocateNoOpenInvoices(t *testing.T) {
	repo := fixtureRepo()
	svc := testService(repo)

	result, err := svc.Allocate(context.Background(), allocInput("500.00"))
	require.NoError(t, err)
	require.True(t, result.Applied.IsZero())
	require.True(t, result.Unapplied.Equal(dec("500.00")))
	require.Empty(t, repo.allocations)
	require.True(t, repo.payments[100].Unapplied.Equal(dec("500.00")))
}

func TestAllocateRejectsCrossOrgTenant(t *testing.T) {
	repo := fixtureRepo()
	repo.tenants[9] = 2
	repo.payments[100].OrgID = 1
	svc := testService(repo)

	_, err := svc.Allocate(context.Background(), allocInput("100.00"))
	require.ErrorIs(t, err, shared.ErrOwnership)
	require.Empty(t, repo.allocations)
}

func TestAllocateRejectsCrossOrgPayment(t *testing.T) {
	repo := fixtureRepo()
	repo.payments[100].OrgID = 7
	svc := testService(repo)

	_, err := svc.Allocate(context.Background(), allocInput("100.00"))
	require.ErrorIs(t, err, shared.ErrOwnership)
}

func TestAllocateRejectsNonPositiveAmount(t *testing.T) {
	svc := testService(fixtureRepo())

	in := allocInput("0.00")
	_, err := svc.Allocate(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = allocInput("-10.00")
	_, err = svc.Allocate(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAllocateComponentStrategyWritesBreakdown(t *testing.T) {
	repo := fixtureRepo()
	repo.addInvoice(componentInvoice(1))
	svc := testService(repo)

	in := allocInput("550.00")
	in.Strategy = StrategyComponent
	result, err := svc.Allocate(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, result.Allocations, 1)
	require.Equal(t, KindComponent, result.Allocations[0].Kind)
	require.NotEmpty(t, result.Allocations[0].Components)
	require.Equal(t, billing.InvoiceStatusPartial, repo.invoices[1].Status)
}

func TestAllocatePaidTotalResummedFromRows(t *testing.T) {
	repo := fixtureRepo()
	repo.addInvoice(openInvoice(1, "1000.00", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
	// A concurrent allocation already wrote a row this run must see.
	repo.allocations = append(repo.allocations, Allocation{ID: 99, InvoiceID: 1, Amount: dec("400.00")})
	repo.nextAllocID = 99
	svc := testService(repo)

	result, err := svc.Allocate(context.Background(), allocInput("300.00"))
	require.NoError(t, err)
	require.True(t, result.Applied.Equal(dec("300.00")))
	require.True(t, repo.invoices[1].PaidAmount.Equal(dec("700.00")))
	require.Equal(t, billing.InvoiceStatusPartial, repo.invoices[1].Status)
}

func TestAllocateWritesAudit(t *testing.T) {
	repo := fixtureRepo()
	repo.addInvoice(openInvoice(1, "500.00", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
	svc := testService(repo)

	_, err := svc.Allocate(context.Background(), allocInput("500.00"))
	require.NoError(t, err)
	require.Len(t, repo.audits, 1)
	require.Equal(t, "payment.allocated", repo.audits[0].Action)
	require.Equal(t, "fifo", repo.audits[0].Meta["strategy"])
}
