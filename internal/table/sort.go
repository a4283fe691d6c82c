package table

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"bichat/internal/dataset"
)

func sortRows(rows []dataset.Record, s Sort) []dataset.Record {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b dataset.Record) int {
		c := compareCells(a[s.Column], b[s.Column])
		if s.Direction == Descending {
			return -c
		}
		return c
	})
	return out
}

// compareCells compares numerically when both cells parse as numbers and
// falls back to a case-insensitive string comparison.
func compareCells(a, b dataset.Value) int {
	na, okA := cellNumber(a)
	nb, okB := cellNumber(b)
	if okA && okB {
		return cmp.Compare(na, nb)
	}
	return strings.Compare(strings.ToLower(a.String()), strings.ToLower(b.String()))
}

func cellNumber(v dataset.Value) (float64, bool) {
	switch v.Kind {
	case dataset.KindNumber:
		return v.Num, !math.IsNaN(v.Num)
	case dataset.KindText:
		return dataset.ParseNumber(v.Text)
	default:
		return 0, false
	}
}
