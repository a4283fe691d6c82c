// Package table implements the tabular result viewer: client-side
// filtering, sorting and pagination over a record set.
//
// A Viewer is an immutable value. Every operation returns a new Viewer and
// never fails; malformed cells are stringified.
package table

import (
	"maps"
	"slices"
	"strings"

	"bichat/internal/dataset"
)

// PageSizes are the allowed rows-per-page values.
var PageSizes = []int{5, 10, 25, 50, 100}

// DefaultPageSize is used when no valid page size is given.
const DefaultPageSize = 10

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool { return slices.Contains(PageSizes, n) }

// Viewer is the view state of one record set.
type Viewer struct {
	data  *dataset.Dataset
	state State
}

// New returns a viewer on page 1 with the default page size and no
// filters or sort.
func New(ds *dataset.Dataset) Viewer {
	return Viewer{data: ds, state: State{Page: 1, PageSize: DefaultPageSize}}
}

// Restore rebuilds a viewer from a previously exported state, dropping
// anything that does not apply to ds. The page is kept as is.
func Restore(ds *dataset.Dataset, st State) Viewer {
	v := New(ds)
	if ValidPageSize(st.PageSize) {
		v.state.PageSize = st.PageSize
	}
	if st.Page > 1 {
		v.state.Page = st.Page
	}
	v.state.Filters = keepFilters(ds, st.Filters)
	if st.Sort != nil && ds.HasColumn(st.Sort.Column) {
		s := *st.Sort
		v.state.Sort = &s
	}
	return v
}

// Data returns the underlying record set.
func (v Viewer) Data() *dataset.Dataset { return v.data }

// State returns a copy of the current view state.
func (v Viewer) State() State { return v.state.clone() }

// WithData swaps the record set. Filters and sort on columns that still
// exist survive, the page resets to 1 and the page size is kept.
func (v Viewer) WithData(ds *dataset.Dataset) Viewer {
	next := Viewer{data: ds, state: State{Page: 1, PageSize: v.state.PageSize}}
	next.state.Filters = keepFilters(ds, v.state.Filters)
	if v.state.Sort != nil && ds.HasColumn(v.state.Sort.Column) {
		s := *v.state.Sort
		next.state.Sort = &s
	}
	return next
}

// SetFilter sets the substring filter for column. An empty pattern removes
// it. The page resets to 1. Columns the data lacks are ignored.
func (v Viewer) SetFilter(column, pattern string) Viewer {
	if !v.data.HasColumn(column) {
		return v
	}
	next := v.copy()
	if pattern == "" {
		delete(next.state.Filters, column)
	} else {
		if next.state.Filters == nil {
			next.state.Filters = map[string]string{}
		}
		next.state.Filters[column] = pattern
	}
	if len(next.state.Filters) == 0 {
		next.state.Filters = nil
	}
	next.state.Page = 1
	return next
}

// ClearFilters removes every filter and resets the page. Sort is kept.
func (v Viewer) ClearFilters() Viewer {
	next := v.copy()
	next.state.Filters = nil
	next.state.Page = 1
	return next
}

// ToggleSort sorts by column ascending, or flips the direction when column
// is already the sort column. Columns the data lacks are ignored.
func (v Viewer) ToggleSort(column string) Viewer {
	if !v.data.HasColumn(column) {
		return v
	}
	next := v.copy()
	if next.state.Sort != nil && next.state.Sort.Column == column {
		next.state.Sort = &Sort{Column: column, Direction: next.state.Sort.Direction.Flip()}
		return next
	}
	next.state.Sort = &Sort{Column: column, Direction: Ascending}
	return next
}

// SetPageSize changes rows per page and returns to page 1. Sizes outside
// PageSizes are ignored.
func (v Viewer) SetPageSize(n int) Viewer {
	if !ValidPageSize(n) {
		return v
	}
	next := v.copy()
	next.state.PageSize = n
	next.state.Page = 1
	return next
}

// FirstPage jumps to page 1.
func (v Viewer) FirstPage() Viewer {
	if v.state.Page <= 1 {
		return v
	}
	next := v.copy()
	next.state.Page = 1
	return next
}

// PrevPage moves back one page; no-op on page 1.
func (v Viewer) PrevPage() Viewer {
	if v.state.Page <= 1 {
		return v
	}
	next := v.copy()
	next.state.Page--
	return next
}

// NextPage moves forward one page; no-op on the last page.
func (v Viewer) NextPage() Viewer {
	if v.state.Page >= v.totalPages(len(v.Rows())) {
		return v
	}
	next := v.copy()
	next.state.Page++
	return next
}

// LastPage jumps to the last page.
func (v Viewer) LastPage() Viewer {
	last := v.totalPages(len(v.Rows()))
	if v.state.Page == last {
		return v
	}
	next := v.copy()
	next.state.Page = last
	return next
}

// Rows returns the filtered and sorted records, before pagination.
func (v Viewer) Rows() []dataset.Record {
	rows := filterRows(v.data.Rows(), v.state.Filters)
	if v.state.Sort != nil {
		rows = sortRows(rows, *v.state.Sort)
	}
	return rows
}

func (v Viewer) copy() Viewer {
	return Viewer{data: v.data, state: v.state.clone()}
}

func (v Viewer) totalPages(n int) int {
	if n == 0 {
		return 1
	}
	return (n + v.state.PageSize - 1) / v.state.PageSize
}

func keepFilters(ds *dataset.Dataset, filters map[string]string) map[string]string {
	out := map[string]string{}
	for col, pattern := range filters {
		if pattern != "" && ds.HasColumn(col) {
			out[col] = pattern
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func filterRows(rows []dataset.Record, filters map[string]string) []dataset.Record {
	if len(filters) == 0 {
		return slices.Clone(rows)
	}
	lowered := make(map[string]string, len(filters))
	for col, pattern := range filters {
		if pattern != "" {
			lowered[col] = strings.ToLower(pattern)
		}
	}
	cols := slices.Sorted(maps.Keys(lowered))

	out := make([]dataset.Record, 0, len(rows))
	for _, r := range rows {
		keep := true
		for _, col := range cols {
			if !strings.Contains(strings.ToLower(r[col].String()), lowered[col]) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}
