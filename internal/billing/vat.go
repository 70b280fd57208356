package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// VatProfile holds the percentage rates per cost component.
type VatProfile struct {
	Rent    decimal.Decimal
	Opex    decimal.Decimal
	Heating decimal.Decimal
}

// VatOverride replaces individual profile fields; nil fields keep the
// resolved default.
type VatOverride struct {
	Rent    *decimal.Decimal
	Opex    *decimal.Decimal
	Heating *decimal.Decimal
}

// Rate resolves a charge type's VAT key to its rate. Unknown keys fall
// back to the operating-cost rate.
func (p VatProfile) Rate(key string) decimal.Decimal {
	switch key {
	case "rent":
		return p.Rent
	case "heating":
		return p.Heating
	default:
		return p.Opex
	}
}

// Commercial category vocabulary, matched as case-insensitive substrings.
var commercialCategories = []string{"office", "garage", "storage", "retail", "parking", "commercial"}

var (
	rateTen    = decimal.NewFromInt(10)
	rateTwenty = decimal.NewFromInt(20)
)

// ResolveVatProfile maps a unit category to its VAT rates. Residential
// (and any unknown or empty category) yields 10/10/20; commercial
// categories yield 20/20/20. An override replaces only the fields it
// names.
func ResolveVatProfile(category string, override *VatOverride) VatProfile {
	profile := VatProfile{Rent: rateTen, Opex: rateTen, Heating: rateTwenty}
	lowered := strings.ToLower(category)
	for _, keyword := range commercialCategories {
		if strings.Contains(lowered, keyword) {
			profile = VatProfile{Rent: rateTwenty, Opex: rateTwenty, Heating: rateTwenty}
			break
		}
	}
	if override != nil {
		if override.Rent != nil {
			profile.Rent = *override.Rent
		}
		if override.Opex != nil {
			profile.Opex = *override.Opex
		}
		if override.Heating != nil {
			profile.Heating = *override.Heating
		}
	}
	return profile
}
