package money

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultMaxStepsFactor bounds the correction loop at factor*len(lines)
// one-cent steps, i.e. a maximum correctable residual of
// 0.01*factor*len(lines).
const DefaultMaxStepsFactor = 2

// ReconcileError reports a residual that could not be resolved within
// the bounded number of correction steps. The line set, target and
// remaining residual are carried for diagnosis.
type ReconcileError struct {
	Lines    []decimal.Decimal
	Target   decimal.Decimal
	Residual decimal.Decimal
	MaxSteps int
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("reconciliation failed: residual %s against target %s not resolvable in %d steps over %d lines",
		e.Residual.StringFixed(2), e.Target.StringFixed(2), e.MaxSteps, len(e.Lines))
}

// Reconcile forces a set of independently rounded line amounts to sum
// exactly to target. Corrections are one-cent steps applied to lines in
// descending absolute amount, ties kept in insertion order, cycling
// until the residual is resolved. The result is order-deterministic:
// any permutation of the same line set yields the same final amounts.
// The input slice is not modified.
func Reconcile(lines []decimal.Decimal, target decimal.Decimal, maxStepsFactor int) ([]decimal.Decimal, error) {
	if maxStepsFactor <= 0 {
		maxStepsFactor = DefaultMaxStepsFactor
	}
	residual := Round(target.Sub(Sum(lines)))
	out := append([]decimal.Decimal(nil), lines...)
	if residual.Abs().LessThan(Cent) {
		return out, nil
	}
	maxSteps := maxStepsFactor * len(lines)
	if len(lines) == 0 {
		return nil, &ReconcileError{Lines: lines, Target: target, Residual: residual, MaxSteps: maxSteps}
	}

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return out[order[a]].Abs().GreaterThan(out[order[b]].Abs())
	})

	step := Cent
	if residual.IsNegative() {
		step = Cent.Neg()
	}
	for i := 0; !residual.IsZero(); i++ {
		if i >= maxSteps {
			return nil, &ReconcileError{Lines: lines, Target: target, Residual: residual, MaxSteps: maxSteps}
		}
		idx := order[i%len(order)]
		out[idx] = out[idx].Add(step)
		residual = residual.Sub(step)
	}
	return out, nil
}
