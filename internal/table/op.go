package table

import "fmt"

// Op is a user interaction sent by a client.
type Op struct {
	Type   string `json:"type"`
	Column string `json:"column,omitempty"`
	Value  string `json:"value,omitempty"`
	Size   int    `json:"size,omitempty"`
}

// Operation types accepted by Apply.
const (
	OpFilter       = "filter"
	OpClearFilters = "clear_filters"
	OpSort         = "sort"
	OpPageSize     = "page_size"
	OpFirst        = "first"
	OpPrev         = "prev"
	OpNext         = "next"
	OpLast         = "last"
)

// Apply performs op. Unknown operation types are reported so the HTTP
// layer can answer 400; the viewer itself is left unchanged.
func (v Viewer) Apply(op Op) (Viewer, error) {
	switch op.Type {
	case "":
		return v, nil
	case OpFilter:
		return v.SetFilter(op.Column, op.Value), nil
	case OpClearFilters:
		return v.ClearFilters(), nil
	case OpSort:
		return v.ToggleSort(op.Column), nil
	case OpPageSize:
		return v.SetPageSize(op.Size), nil
	case OpFirst:
		return v.FirstPage(), nil
	case OpPrev:
		return v.PrevPage(), nil
	case OpNext:
		return v.NextPage(), nil
	case OpLast:
		return v.LastPage(), nil
	default:
		return v, fmt.Errorf("unknown table operation %q", op.Type)
	}
}
