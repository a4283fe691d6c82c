package chart

import (
	"fmt"
	"math"

	"bichat/internal/dataset"
)

// Domain is the Y-axis range. Min is always 0.
type Domain struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

var defaultDomain = Domain{Min: 0, Max: 100}

// YDomain computes the Y-axis range for column: non-negative coerced values
// padded by 20% of their spread and rounded up to a human-legible number.
// Non-numeric columns and columns without non-negative values get [0, 100].
func YDomain(ds *dataset.Dataset, column string) Domain {
	if !ds.IsNumeric(column) {
		return defaultDomain
	}
	values := make([]float64, 0, ds.Len())
	for _, r := range ds.Rows() {
		values = append(values, dataset.SafeNumber(r[column]))
	}
	return DomainFor(values)
}

// DomainFor applies the upper-bound rule to raw values.
func DomainFor(values []float64) Domain {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if v < 0 || math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(hi, -1) {
		return defaultDomain
	}

	var upper float64
	if hi == lo {
		upper = hi * 1.2
	} else {
		upper = hi + 0.2*(hi-lo)
	}
	upper = NiceCeil(upper)

	// An all-zero series falls back to [0, 100] here, before the clamp to 10.
	if math.IsInf(upper, 0) || math.IsNaN(upper) || upper <= 0 {
		return defaultDomain
	}
	if upper < 10 {
		upper = 10
	}
	return Domain{Min: 0, Max: upper}
}

// NiceCeil rounds v up to a multiple of a step chosen by magnitude.
func NiceCeil(v float64) float64 {
	step := niceStep(v)
	return math.Ceil(v/step) * step
}

func niceStep(v float64) float64 {
	switch {
	case v > 1_000_000:
		return 100_000
	case v > 100_000:
		return 10_000
	case v > 10_000:
		return 1_000
	case v > 100:
		return 100
	case v > 10:
		return 10
	default:
		return 1
	}
}

// Tick is a labelled Y-axis position.
type Tick struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

const tickCount = 5

// Ticks spreads tickCount intervals evenly over d.
func Ticks(d Domain) []Tick {
	ticks := make([]Tick, 0, tickCount+1)
	step := (d.Max - d.Min) / tickCount
	for i := 0; i <= tickCount; i++ {
		v := d.Min + float64(i)*step
		ticks = append(ticks, Tick{Value: v, Label: FormatNumber(v)})
	}
	return ticks
}

// FormatNumber formats a value with Indian-system suffixes: Cr (1e7),
// L (1e5) and K (1e3) with one decimal, otherwise the integer part.
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return "0"
	case v >= 10_000_000:
		return fmt.Sprintf("%.1fCr", v/10_000_000)
	case v >= 100_000:
		return fmt.Sprintf("%.1fL", v/100_000)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK", v/1_000)
	default:
		// Adding zero folds -0 into 0.
		return fmt.Sprintf("%.0f", math.Trunc(v)+0)
	}
}
