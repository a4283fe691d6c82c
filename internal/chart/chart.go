// Package chart implements the adaptive bar chart renderer: axis
// selection over a record set, value coercion, Y-axis bounds and the
// JSON, SVG/PNG and terminal renderings.
package chart

import (
	"bichat/internal/dataset"
)

// Messages shown in place of a chart.
const (
	NoDataMessage     = "No data available"
	SelectAxesMessage = "Select X and Y axes to display the chart"
	NotNumericWarning = "Y axis column does not look numeric; non-numeric values are plotted as 0"
)

// Selection is the chosen pair of axes. An empty string means unset.
type Selection struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// Chart is an immutable axis selection bound to a record set.
type Chart struct {
	data *dataset.Dataset
	sel  Selection
}

// New binds ds with the default selection: the first column as X and the
// second as Y.
func New(ds *dataset.Dataset) Chart {
	return Chart{data: ds, sel: defaultSelection(ds)}
}

// Restore binds ds with a client supplied selection, falling back to the
// default for anything that does not fit.
func Restore(ds *dataset.Dataset, sel Selection) Chart {
	c := New(ds)
	if sel.X != "" {
		c = c.SelectX(sel.X)
	}
	if sel.Y != "" {
		c = c.SelectY(sel.Y)
	}
	return c
}

func defaultSelection(ds *dataset.Dataset) Selection {
	cols := ds.Columns()
	switch len(cols) {
	case 0:
		return Selection{}
	case 1:
		return Selection{X: cols[0]}
	default:
		return Selection{X: cols[0], Y: cols[1]}
	}
}

// Data returns the record set.
func (c Chart) Data() *dataset.Dataset { return c.data }

// Selection returns the current axes.
func (c Chart) Selection() Selection { return c.sel }

// WithData swaps the record set. The previous axes are kept only when both
// still exist and differ; otherwise the default selection is used.
func (c Chart) WithData(ds *dataset.Dataset) Chart {
	if c.sel.X != "" && c.sel.Y != "" && c.sel.X != c.sel.Y &&
		ds.HasColumn(c.sel.X) && ds.HasColumn(c.sel.Y) {
		return Chart{data: ds, sel: c.sel}
	}
	return New(ds)
}

// SelectX sets the X axis. When column is the current Y axis, Y moves to
// the first other column or is cleared when there is none.
func (c Chart) SelectX(column string) Chart {
	if !c.data.HasColumn(column) {
		return c
	}
	next := Chart{data: c.data, sel: Selection{X: column, Y: c.sel.Y}}
	if column == c.sel.Y {
		next.sel.Y = ""
		for _, col := range c.data.Columns() {
			if col != column {
				next.sel.Y = col
				break
			}
		}
	}
	return next
}

// SelectY sets the Y axis. Selecting the X column or an unknown column is
// ignored.
func (c Chart) SelectY(column string) Chart {
	if column == c.sel.X || !c.data.HasColumn(column) {
		return c
	}
	return Chart{data: c.data, sel: Selection{X: c.sel.X, Y: column}}
}

// Ready reports whether there is a valid axis pair to plot.
func (c Chart) Ready() bool {
	return !c.data.IsEmpty() && c.sel.X != "" && c.sel.Y != "" && c.sel.X != c.sel.Y
}

// Bar is one cleaned data point.
type Bar struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

// Bars returns the cleaned series: X stringified, Y coerced with
// dataset.SafeNumber. Nil when the chart is not ready.
func (c Chart) Bars() []Bar {
	if !c.Ready() {
		return nil
	}
	rows := c.data.Rows()
	bars := make([]Bar, 0, len(rows))
	for _, r := range rows {
		v := dataset.SafeNumber(r[c.sel.Y])
		bars = append(bars, Bar{
			Label:   r[c.sel.X].String(),
			Value:   v,
			Display: FormatNumber(v),
		})
	}
	return bars
}

// View is the JSON rendering of the chart.
type View struct {
	Empty     bool      `json:"empty"`
	Ready     bool      `json:"ready"`
	Message   string    `json:"message,omitempty"`
	Warning   string    `json:"warning,omitempty"`
	Columns   []string  `json:"columns"`
	Selection Selection `json:"selection"`
	Numeric   bool      `json:"numeric"`
	Bars      []Bar     `json:"bars"`
	Domain    Domain    `json:"domain"`
	Ticks     []Tick    `json:"ticks"`
}

// View computes the chart view. It never fails: empty data and missing
// axes are reported through Message.
func (c Chart) View() View {
	if c.data.IsEmpty() {
		return View{Empty: true, Message: NoDataMessage, Columns: []string{}, Bars: []Bar{}}
	}
	v := View{
		Columns:   c.data.Columns(),
		Selection: c.sel,
		Bars:      []Bar{},
	}
	if !c.Ready() {
		v.Message = SelectAxesMessage
		return v
	}
	v.Ready = true
	v.Numeric = c.data.IsNumeric(c.sel.Y)
	if !v.Numeric {
		v.Warning = NotNumericWarning
	}
	v.Bars = c.Bars()
	v.Domain = YDomain(c.data, c.sel.Y)
	v.Ticks = Ticks(v.Domain)
	return v
}
