package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/zinsbuch/zinsbuch/internal/money"
	"github.com/zinsbuch/zinsbuch/internal/shared"
)

// Draft is a fully built invoice header plus reconciled lines, ready
// to persist or to return as a dry-run preview.
type Draft struct {
	Invoice Invoice
	Lines   []InvoiceLine
}

// BuildInvoice constructs the invoice for an active tenancy and
// period. Component VAT is extracted from the gross advances, the
// total adds the carry-forward balance, and the lines are reconciled
// against the total before the draft is returned.
func BuildInvoice(tenancy Tenancy, unit Unit, period shared.Period, rules Rules, carry decimal.Decimal) (Draft, error) {
	profile := ResolveVatProfile(unit.Category, rules.OverrideFor(tenancy.OrgID))

	inv := Invoice{
		OrgID:        tenancy.OrgID,
		PropertyID:   unit.PropertyID,
		UnitID:       unit.ID,
		TenancyID:    tenancy.ID,
		Period:       period,
		CarryForward: money.Round(carry),
		Status:       InvoiceStatusOpen,
		DueDate:      period.DueDate(rules.DueDay),
		PaidAmount:   decimal.Zero,
	}
	total := inv.CarryForward
	for _, ct := range rules.ChargeTypes {
		gross := money.Round(tenancy.AdvanceFor(ct.Type))
		if !gross.IsPositive() {
			continue
		}
		rate := profile.Rate(ct.VatKey)
		setComponent(&inv, ct.Type, gross, money.VatFromGross(gross, rate))
		total = total.Add(gross)
	}
	for _, extra := range tenancy.ExtraCosts {
		gross := money.Round(extra.Amount)
		if !gross.IsPositive() {
			continue
		}
		inv.OtherGross = inv.OtherGross.Add(gross)
		inv.OtherVat = inv.OtherVat.Add(money.VatFromGross(gross, extra.VatRate))
		total = total.Add(gross)
	}
	inv.Total = money.Round(total)

	lines, err := buildLines(inv, tenancy, profile, period, rules)
	if err != nil {
		return Draft{}, err
	}
	return Draft{Invoice: inv, Lines: lines}, nil
}

// BuildVacancyInvoice constructs the reduced invoice for a vacant
// unit: no rent, operating and heating costs from the unit's vacancy
// defaults, falling back to the last known tenancy advances.
func BuildVacancyInvoice(unit Unit, lastTenancy *Tenancy, period shared.Period, rules Rules, carry decimal.Decimal) (Draft, error) {
	synthetic := Tenancy{
		OrgID:          unit.OrgID,
		PropertyID:     unit.PropertyID,
		UnitID:         unit.ID,
		OpexAdvance:    unit.VacancyOpex,
		HeatingAdvance: unit.VacancyHeating,
		Status:         TenancyStatusActive,
	}
	if lastTenancy != nil {
		synthetic.ID = lastTenancy.ID
		if !synthetic.OpexAdvance.IsPositive() {
			synthetic.OpexAdvance = lastTenancy.OpexAdvance
		}
		if !synthetic.HeatingAdvance.IsPositive() {
			synthetic.HeatingAdvance = lastTenancy.HeatingAdvance
		}
	}
	draft, err := BuildInvoice(synthetic, unit, period, rules, carry)
	if err != nil {
		return Draft{}, err
	}
	draft.Invoice.Vacancy = true
	return draft, nil
}

func setComponent(inv *Invoice, lineType LineType, gross, vat decimal.Decimal) {
	switch lineType {
	case LineTypeRent:
		inv.RentGross, inv.RentVat = gross, vat
	case LineTypeOpex:
		inv.OpexGross, inv.OpexVat = gross, vat
	case LineTypeHeating:
		inv.HeatingGross, inv.HeatingVat = gross, vat
	case LineTypeWater:
		inv.WaterGross, inv.WaterVat = gross, vat
	}
}

func componentGross(inv Invoice, lineType LineType) decimal.Decimal {
	switch lineType {
	case LineTypeRent:
		return inv.RentGross
	case LineTypeOpex:
		return inv.OpexGross
	case LineTypeHeating:
		return inv.HeatingGross
	case LineTypeWater:
		return inv.WaterGross
	default:
		return decimal.Zero
	}
}

// buildLines emits one line per configured charge type with a positive
// amount plus one line per extra-cost entry, then forces the line
// amounts to sum to the invoice total. Net and VAT are each rounded
// independently; the reconciler owns the cent-level consistency with
// the header.
func buildLines(inv Invoice, tenancy Tenancy, profile VatProfile, period shared.Period, rules Rules) ([]InvoiceLine, error) {
	var lines []InvoiceLine
	for _, ct := range rules.ChargeTypes {
		gross := componentGross(inv, ct.Type)
		if !gross.IsPositive() {
			continue
		}
		rate := profile.Rate(ct.VatKey)
		net := money.NetFromGross(gross, rate)
		vat := money.Round(net.Mul(rate).Div(decimal.NewFromInt(100)))
		lines = append(lines, InvoiceLine{
			Type:        ct.Type,
			Description: fmt.Sprintf(ct.Description, period),
			Net:         net,
			VatRate:     rate,
			Amount:      net.Add(vat),
		})
	}
	for _, extra := range tenancy.ExtraCosts {
		gross := money.Round(extra.Amount)
		if !gross.IsPositive() {
			continue
		}
		net := money.NetFromGross(gross, extra.VatRate)
		vat := money.Round(net.Mul(extra.VatRate).Div(decimal.NewFromInt(100)))
		lines = append(lines, InvoiceLine{
			Type:        LineTypeExtra,
			Description: extra.Key,
			Net:         net,
			VatRate:     extra.VatRate,
			Amount:      net.Add(vat),
			Reference:   extra.Reference,
		})
	}
	// The carry-forward saldo is a signed line so the lines keep
	// summing to the invoice total even for credit balances.
	if !inv.CarryForward.IsZero() {
		lines = append(lines, InvoiceLine{
			Type:        LineTypeCarryForward,
			Description: fmt.Sprintf("Saldovortrag %s", period),
			Net:         inv.CarryForward,
			VatRate:     decimal.Zero,
			Amount:      inv.CarryForward,
		})
	}

	amounts := make([]decimal.Decimal, len(lines))
	for i, line := range lines {
		amounts[i] = line.Amount
	}
	reconciled, err := money.Reconcile(amounts, inv.Total, rules.MaxStepsFactor)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		lines[i].Amount = reconciled[i]
	}
	return lines, nil
}
