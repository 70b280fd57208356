package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestVatFromGrossTenPercent(t *testing.T) {
	vat := VatFromGross(d("1100"), d("10"))
	require.True(t, vat.Equal(d("100.00")), "got %s", vat)
}

func TestVatFromGrossTwentyPercent(t *testing.T) {
	vat := VatFromGross(d("1200"), d("20"))
	require.True(t, vat.Equal(d("200.00")), "got %s", vat)
}

func TestVatFromGrossZeroRate(t *testing.T) {
	vat := VatFromGross(d("843.17"), decimal.Zero)
	require.True(t, vat.IsZero())
}

func TestVatFromGrossRounds(t *testing.T) {
	// 333.33 at 10%: net 303.027..., vat 30.302... -> 30.30
	vat := VatFromGross(d("333.33"), d("10"))
	require.True(t, vat.Equal(d("30.30")), "got %s", vat)
}

func TestNetFromGross(t *testing.T) {
	net := NetFromGross(d("1100"), d("10"))
	require.True(t, net.Equal(d("1000.00")), "got %s", net)
}
