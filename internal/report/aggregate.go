package report

import "github.com/frahmantamala/billable-dashboard/internal/core/flex"

// Decimals used when rendering hours and scores.
const (
	HoursDecimals = 2
	ScoreDecimals = 2
	CountDecimals = -1
)

// accumulator sums numeric values and skips absent ones; absent values are
// never counted as zero.
type accumulator struct {
	sum float64
	n   int
}

func (a *accumulator) add(v flex.Float) {
	if !v.Valid {
		return
	}
	a.sum += v.Value
	a.n++
}

// Sum is absent when no value contributed.
func (a accumulator) Sum() flex.Float {
	if a.n == 0 {
		return flex.Float{}
	}
	return flex.Some(a.sum)
}

func (a accumulator) Avg() flex.Float {
	if a.n == 0 {
		return flex.Float{}
	}
	return flex.Some(a.sum / float64(a.n))
}
