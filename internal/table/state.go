package table

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Direction) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "asc", "":
		*d = Ascending
	case "desc":
		*d = Descending
	default:
		return fmt.Errorf("unknown sort direction %q", s)
	}
	return nil
}

// Sort names the sort column and direction.
type Sort struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction"`
}

// State is the exported view state. Clients keep it between requests and
// send it back with the next operation.
type State struct {
	Filters  map[string]string `json:"filters,omitempty"`
	Sort     *Sort             `json:"sort,omitempty"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

func (s State) clone() State {
	out := s
	if s.Filters != nil {
		out.Filters = maps.Clone(s.Filters)
	}
	if s.Sort != nil {
		sort := *s.Sort
		out.Sort = &sort
	}
	return out
}
