package payments

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/zinsbuch/zinsbuch/internal/billing"
	"github.com/zinsbuch/zinsbuch/internal/money"
	"github.com/zinsbuch/zinsbuch/internal/shared"
)

// componentPriority is the fixed settlement order for component splits.
var componentPriority = []billing.LineType{
	billing.LineTypeRent,
	billing.LineTypeOpex,
	billing.LineTypeHeating,
	billing.LineTypeWater,
}

// plan is the in-memory outcome of a strategy before anything is
// written: one entry per touched invoice.
type plan struct {
	InvoiceID  int64
	Amount     decimal.Decimal
	Kind       AllocationKind
	Components []ComponentShare
}

// planAllocation runs the named strategy over the open invoices,
// oldest first, and returns the per-invoice applications plus the
// unapplied remainder.
func planAllocation(strategy Strategy, invoices []billing.Invoice, amount decimal.Decimal) ([]plan, decimal.Decimal, error) {
	switch strategy {
	case StrategyFIFO, "":
		return planFIFO(invoices, amount), decimal.Zero, nil
	case StrategyComponent:
		return planComponent(invoices, amount), decimal.Zero, nil
	default:
		return nil, decimal.Zero, fmt.Errorf("%w: unknown allocation strategy %q", shared.ErrValidation, strategy)
	}
}

// planFIFO applies min(remaining, outstanding) per invoice until the
// payment is exhausted or no open invoices remain.
func planFIFO(invoices []billing.Invoice, amount decimal.Decimal) []plan {
	remaining := money.Round(amount)
	var plans []plan
	for _, inv := range invoices {
		if !remaining.IsPositive() {
			break
		}
		outstanding := inv.Total.Sub(inv.PaidAmount)
		if !outstanding.IsPositive() {
			continue
		}
		applied := decimal.Min(remaining, outstanding)
		plans = append(plans, plan{
			InvoiceID: inv.ID,
			Amount:    applied,
			Kind:      KindWhole,
		})
		remaining = remaining.Sub(applied)
	}
	return plans
}

// planComponent splits the payment across each invoice's components in
// priority order. One plan entry per invoice carries the aggregated
// amount plus the component breakdown.
func planComponent(invoices []billing.Invoice, amount decimal.Decimal) []plan {
	remaining := money.Round(amount)
	var plans []plan
	for _, inv := range invoices {
		if !remaining.IsPositive() {
			break
		}
		outstanding := inv.Total.Sub(inv.PaidAmount)
		if !outstanding.IsPositive() || !inv.Total.IsPositive() {
			continue
		}
		// Already-paid amounts reduce every component proportionally.
		outstandingRatio := outstanding.Div(inv.Total)

		p := plan{InvoiceID: inv.ID, Kind: KindComponent}
		applied := decimal.Zero
		for _, component := range componentPriority {
			if !remaining.IsPositive() {
				break
			}
			gross, vat := componentAmounts(inv, component)
			if !gross.IsPositive() {
				continue
			}
			openGross := money.Round(gross.Mul(outstandingRatio))
			if !openGross.IsPositive() {
				continue
			}
			take := decimal.Min(remaining, openGross)
			// VAT share follows the component's own net-to-gross ratio.
			takenVat := money.Round(take.Mul(vat).Div(gross))
			p.Components = append(p.Components, ComponentShare{
				Component: string(component),
				Net:       take.Sub(takenVat),
				Vat:       takenVat,
				Gross:     take,
			})
			applied = applied.Add(take)
			remaining = remaining.Sub(take)
		}
		// Carry-forward and extras have no component slot; whatever the
		// priority pass left open on this invoice absorbs the rest.
		if remaining.IsPositive() {
			rest := decimal.Min(remaining, outstanding.Sub(applied))
			if rest.IsPositive() {
				p.Components = append(p.Components, ComponentShare{
					Component: "other",
					Net:       rest,
					Gross:     rest,
				})
				applied = applied.Add(rest)
				remaining = remaining.Sub(rest)
			}
		}
		if applied.IsPositive() {
			p.Amount = applied
			plans = append(plans, p)
		}
	}
	return plans
}

func componentAmounts(inv billing.Invoice, component billing.LineType) (gross, vat decimal.Decimal) {
	switch component {
	case billing.LineTypeRent:
		return inv.RentGross, inv.RentVat
	case billing.LineTypeOpex:
		return inv.OpexGross, inv.OpexVat
	case billing.LineTypeHeating:
		return inv.HeatingGross, inv.HeatingVat
	case billing.LineTypeWater:
		return inv.WaterGross, inv.WaterVat
	default:
		return decimal.Zero, decimal.Zero
	}
}
