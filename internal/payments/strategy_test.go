package payments

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/zinsbuch/zinsbuch/internal/billing"
	"github.com/zinsbuch/zinsbuch/internal/shared"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func openInvoice(id int64, total string, due time.Time) billing.Invoice {
	return billing.Invoice{
		ID:         id,
		OrgID:      1,
		Total:      dec(total),
		PaidAmount: decimal.Zero,
		Status:     billing.InvoiceStatusOpen,
		DueDate:    due,
	}
}

func TestPlanFIFOSettlesOldestFirst(t *testing.T) {
	older := openInvoice(1, "800.00", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	newer := openInvoice(2, "600.00", time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC))

	plans := planFIFO([]billing.Invoice{older, newer}, dec("800.00"))
	require.Len(t, plans, 1)
	require.Equal(t, int64(1), plans[0].InvoiceID)
	require.True(t, plans[0].Amount.Equal(dec("800.00")))
}

func TestPlanFIFOSpansInvoices(t *testing.T) {
	older := openInvoice(1, "800.00", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	newer := openInvoice(2, "600.00", time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC))

	plans := planFIFO([]billing.Invoice{older, newer}, dec("1000.00"))
	require.Len(t, plans, 2)
	require.True(t, plans[0].Amount.Equal(dec("800.00")))
	require.True(t, plans[1].Amount.Equal(dec("200.00")))
}

func TestPlanFIFOSkipsSettledInvoices(t *testing.T) {
	settled := openInvoice(1, "500.00", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	settled.PaidAmount = dec("500.00")
	open := openInvoice(2, "600.00", time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC))

	plans := planFIFO([]billing.Invoice{settled, open}, dec("100.00"))
	require.Len(t, plans, 1)
	require.Equal(t, int64(2), plans[0].InvoiceID)
}

func TestPlanFIFONoOpenInvoices(t *testing.T) {
	plans := planFIFO(nil, dec("500.00"))
	require.Empty(t, plans)
}

func componentInvoice(id int64) billing.Invoice {
	inv := openInvoice(id, "1440.00", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))
	inv.RentGross = dec("1100.00")
	inv.RentVat = dec("100.00")
	inv.OpexGross = dec("220.00")
	inv.OpexVat = dec("20.00")
	inv.HeatingGross = dec("120.00")
	inv.HeatingVat = dec("20.00")
	return inv
}

func TestPlanComponentPriorityOrder(t *testing.T) {
	inv := componentInvoice(1)

	plans := planComponent([]billing.Invoice{inv}, dec("1200.00"))
	require.Len(t, plans, 1)
	require.True(t, plans[0].Amount.Equal(dec("1200.00")))

	// Rent first and in full, then the remainder into opex.
	require.Len(t, plans[0].Components, 2)
	require.Equal(t, "rent", plans[0].Components[0].Component)
	require.True(t, plans[0].Components[0].Gross.Equal(dec("1100.00")))
	require.True(t, plans[0].Components[0].Vat.Equal(dec("100.00")))
	require.Equal(t, "opex", plans[0].Components[1].Component)
	require.True(t, plans[0].Components[1].Gross.Equal(dec("100.00")))
}

func TestPlanComponentOneRowPerInvoice(t *testing.T) {
	first := componentInvoice(1)
	second := componentInvoice(2)
	second.DueDate = first.DueDate.AddDate(0, 1, 0)

	plans := planComponent([]billing.Invoice{first, second}, dec("1500.00"))
	require.Len(t, plans, 2)
	require.True(t, plans[0].Amount.Equal(dec("1440.00")))
	require.True(t, plans[1].Amount.Equal(dec("60.00")))
}

func TestPlanComponentVatShareFollowsRatio(t *testing.T) {
	inv := componentInvoice(1)

	plans := planComponent([]billing.Invoice{inv}, dec("550.00"))
	require.Len(t, plans, 1)
	require.Len(t, plans[0].Components, 1)
	rent := plans[0].Components[0]
	// 550 of 1100 gross carries half the 100 VAT.
	require.True(t, rent.Vat.Equal(dec("50.00")), rent.Vat.String())
	require.True(t, rent.Net.Equal(dec("500.00")))
}

func TestPlanComponentPartiallyPaidScalesOutstanding(t *testing.T) {
	inv := componentInvoice(1)
	inv.PaidAmount = dec("720.00")
	inv.Status = billing.InvoiceStatusPartial

	plans := planComponent([]billing.Invoice{inv}, dec("2000.00"))
	require.Len(t, plans, 1)
	// Half the invoice is outstanding, so half of each component.
	require.True(t, plans[0].Amount.Equal(dec("720.00")), plans[0].Amount.String())
	require.Equal(t, "rent", plans[0].Components[0].Component)
	require.True(t, plans[0].Components[0].Gross.Equal(dec("550.00")))
}

func TestPlanComponentCarryForwardFallsToOther(t *testing.T) {
	inv := openInvoice(1, "100.00", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))
	inv.CarryForward = dec("100.00")

	plans := planComponent([]billing.Invoice{inv}, dec("100.00"))
	require.Len(t, plans, 1)
	require.Len(t, plans[0].Components, 1)
	require.Equal(t, "other", plans[0].Components[0].Component)
	require.True(t, plans[0].Amount.Equal(dec("100.00")))
}

func TestPlanAllocationUnknownStrategy(t *testing.T) {
	_, _, err := planAllocation("newest-first", nil, dec("1.00"))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestPlanAllocationDefaultsToFIFO(t *testing.T) {
	inv := openInvoice(1, "500.00", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	plans, _, err := planAllocation("", []billing.Invoice{inv}, dec("300.00"))
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Equal(t, KindWhole, plans[0].Kind)
}
