// Package money holds the cent-exact arithmetic shared by billing,
// payment allocation and owner settlements. All amounts are decimals
// fixed to two fraction digits; rates are plain percentages.
package money

import "github.com/shopspring/decimal"

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Cent is the smallest representable amount.
var Cent = decimal.New(1, -2)

// Round rounds an amount half-up to the cent.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Sum adds a list of amounts.
func Sum(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// VatFromGross extracts the VAT portion contained in a gross amount at
// the given percentage rate, rounded to the cent:
// gross - gross/(1+rate/100).
func VatFromGross(gross, ratePercent decimal.Decimal) decimal.Decimal {
	if ratePercent.IsZero() {
		return decimal.Zero
	}
	net := gross.Div(one.Add(ratePercent.Div(hundred)))
	return Round(gross.Sub(net))
}

// NetFromGross returns the net portion of a gross amount at the given
// percentage rate, rounded to the cent.
func NetFromGross(gross, ratePercent decimal.Decimal) decimal.Decimal {
	return Round(gross.Sub(VatFromGross(gross, ratePercent)))
}
