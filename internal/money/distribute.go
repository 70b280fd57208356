package money

import "github.com/shopspring/decimal"

// Share is one weighted participant in a proportional split.
type Share struct {
	Key   string
	Ratio decimal.Decimal
}

// Portion is the amount assigned to one share.
type Portion struct {
	Key    string
	Amount decimal.Decimal
}

// Distribute splits total across weighted shares. Each portion is
// round(total*ratio) to the cent; the rounding residual, if any, goes
// entirely to the share with the largest ratio (largest-remainder
// method, first such share on ties). Ratios need not sum to 1. An
// empty share list yields an empty result.
func Distribute(total decimal.Decimal, shares []Share) []Portion {
	if len(shares) == 0 {
		return nil
	}
	portions := make([]Portion, len(shares))
	sum := decimal.Zero
	largest := 0
	for i, s := range shares {
		amount := Round(total.Mul(s.Ratio))
		portions[i] = Portion{Key: s.Key, Amount: amount}
		sum = sum.Add(amount)
		if s.Ratio.GreaterThan(shares[largest].Ratio) {
			largest = i
		}
	}
	residual := Round(total).Sub(sum)
	if !residual.IsZero() {
		portions[largest].Amount = portions[largest].Amount.Add(residual)
	}
	return portions
}
