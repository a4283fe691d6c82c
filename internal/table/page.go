package table

import (
	"fmt"

	"bichat/internal/dataset"
)

// NoDataMessage is shown instead of a table for an empty record set.
const NoDataMessage = "No data available"

// Page is what a client renders for the current view state.
type Page struct {
	Empty       bool             `json:"empty"`
	Message     string           `json:"message,omitempty"`
	SingleValue bool             `json:"single_value"`
	Columns     []string         `json:"columns"`
	Rows        *dataset.Dataset `json:"rows"`
	From        int              `json:"from"`
	To          int              `json:"to"`
	Total       int              `json:"total"`
	Page        int              `json:"page"`
	TotalPages  int              `json:"total_pages"`
	PageSize    int              `json:"page_size"`
	PageSizes   []int            `json:"page_sizes"`
	CanPrev     bool             `json:"can_prev"`
	CanNext     bool             `json:"can_next"`
	Showing     string           `json:"showing"`
	PageLabel   string           `json:"page_label"`
	State       State            `json:"state"`
}

// View computes the visible page. A page beyond the last one yields no
// rows; navigation is disabled rather than the page being clamped.
func (v Viewer) View() Page {
	st := v.State()
	if v.data.IsEmpty() {
		return Page{
			Empty:     true,
			Message:   NoDataMessage,
			Columns:   []string{},
			Rows:      dataset.Empty(),
			Page:      1,
			PageSize:  st.PageSize,
			PageSizes: PageSizes,
			State:     st,
		}
	}

	cols := v.data.Columns()
	rows := v.Rows()
	n := len(rows)
	total := v.totalPages(n)

	start := (st.Page - 1) * st.PageSize
	start = min(start, n)
	end := min(start+st.PageSize, n)

	p := Page{
		SingleValue: len(cols) == 1,
		Columns:     cols,
		Rows:        v.data.Slice(rows[start:end]),
		Total:       n,
		Page:        st.Page,
		TotalPages:  total,
		PageSize:    st.PageSize,
		PageSizes:   PageSizes,
		CanPrev:     st.Page > 1,
		CanNext:     st.Page < total,
		PageLabel:   fmt.Sprintf("Page %d of %d", st.Page, total),
		State:       st,
	}
	if end > start {
		p.From, p.To = start+1, end
	}
	p.Showing = fmt.Sprintf("Showing %d–%d of %d", p.From, p.To, n)
	return p
}
