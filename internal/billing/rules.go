package billing

import "github.com/zinsbuch/zinsbuch/internal/money"

// ChargeType configures one recurring charge line. Description is a
// fmt template receiving the period string.
type ChargeType struct {
	Type        LineType
	VatKey      string
	Description string
}

// Rules is the externally supplied billing configuration. It is passed
// into the service explicitly; DefaultRules is one injectable value,
// not a global.
type Rules struct {
	ChargeTypes    []ChargeType
	DueDay         int
	MaxStepsFactor int
	LineBatchSize  int
	DryRunWorkers  int
	VatOverrides   map[int64]VatOverride
}

// DefaultRules returns the standard Austrian tenancy charge catalogue.
func DefaultRules() Rules {
	return Rules{
		ChargeTypes: []ChargeType{
			{Type: LineTypeRent, VatKey: "rent", Description: "Miete %s"},
			{Type: LineTypeOpex, VatKey: "opex", Description: "Betriebskosten %s"},
			{Type: LineTypeHeating, VatKey: "heating", Description: "Heizkosten %s"},
			{Type: LineTypeWater, VatKey: "opex", Description: "Wasser %s"},
		},
		DueDay:         5,
		MaxStepsFactor: money.DefaultMaxStepsFactor,
		LineBatchSize:  500,
		DryRunWorkers:  4,
	}
}

// OverrideFor returns the per-organization VAT override, if configured.
func (r Rules) OverrideFor(orgID int64) *VatOverride {
	if r.VatOverrides == nil {
		return nil
	}
	if o, ok := r.VatOverrides[orgID]; ok {
		return &o
	}
	return nil
}
