// Package dataset holds query results as an ordered list of records with a
// column order taken from the first record.
package dataset

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned by FromJSON for malformed payloads.
var ErrInvalidJSON = errors.New("invalid dataset JSON")

// ResultColumn names the single column of records built from scalar rows.
const ResultColumn = "Result"

// Record maps a column name to its cell. Missing keys read as null.
type Record map[string]Value

// Dataset is an ordered, read-only collection of records. It is safe for
// concurrent readers.
type Dataset struct {
	columns []string
	rows    []Record

	mu      sync.Mutex
	numeric map[string]bool
}

// New builds a dataset. A nil columns slice derives the column list from the
// first record in sorted key order; callers that know the order should pass
// it.
func New(columns []string, rows []Record) *Dataset {
	if columns == nil && len(rows) > 0 {
		columns = sortedKeys(rows[0])
	}
	if rows == nil {
		rows = []Record{}
	}
	return &Dataset{columns: columns, rows: rows}
}

// Empty returns a dataset with no rows and no columns.
func Empty() *Dataset { return New([]string{}, nil) }

// Columns returns the ordered column names. The result is a copy.
func (d *Dataset) Columns() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// HasColumn reports whether name is one of the dataset columns.
func (d *Dataset) HasColumn(name string) bool {
	if d == nil {
		return false
	}
	for _, c := range d.columns {
		if c == name {
			return true
		}
	}
	return false
}

// Rows returns the records. Callers must not modify them.
func (d *Dataset) Rows() []Record {
	if d == nil {
		return nil
	}
	return d.rows
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// IsEmpty reports whether there is nothing to display.
func (d *Dataset) IsEmpty() bool { return d.Len() == 0 }

// Head returns a dataset sharing the first n records.
func (d *Dataset) Head(n int) *Dataset {
	if d == nil {
		return Empty()
	}
	if n > len(d.rows) {
		n = len(d.rows)
	}
	return New(d.Columns(), d.rows[:n])
}

// Slice returns a dataset over rows with the same columns.
func (d *Dataset) Slice(rows []Record) *Dataset {
	return New(d.Columns(), rows)
}

// IsNumeric reports whether at least NumericThreshold of the records have a
// numeric-looking cell in column. The answer is memoised per column.
func (d *Dataset) IsNumeric(column string) bool {
	if d == nil || len(d.rows) == 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if v, ok := d.numeric[column]; ok {
		return v
	}
	if d.numeric == nil {
		d.numeric = make(map[string]bool)
	}
	v := numericShare(d.rows, column) >= NumericThreshold
	d.numeric[column] = v
	return v
}

// MarshalJSON writes the records as an array of objects, keys in column
// order.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range d.Rows() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, c := range d.columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			k, _ := json.Marshal(c)
			buf.Write(k)
			buf.WriteByte(':')
			v, err := r[c].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the same shapes as FromJSON.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	parsed, err := FromJSON(data)
	if err != nil {
		return err
	}
	d.columns, d.rows, d.numeric = parsed.columns, parsed.rows, nil
	return nil
}

// FromJSON decodes an array of objects keeping key order. The first object
// fixes the column order. Scalars in the array become single-column
// records under ResultColumn. null and empty input yield an empty dataset.
func FromJSON(data []byte) (*Dataset, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Empty(), nil
	}
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	root := gjson.ParseBytes(data)
	switch {
	case root.Type == gjson.Null:
		return Empty(), nil
	case root.IsObject():
		root = gjson.Parse("[" + root.Raw + "]")
	case !root.IsArray():
		return nil, fmt.Errorf("%w: expected an array, got %s", ErrInvalidJSON, root.Type)
	}

	columns := []string{}
	var rows []Record
	root.ForEach(func(_, item gjson.Result) bool {
		rec := Record{}
		keys := []string{}
		if item.IsObject() {
			item.ForEach(func(k, v gjson.Result) bool {
				// a repeated key keeps its first position and its last value
				if _, seen := rec[k.String()]; !seen {
					keys = append(keys, k.String())
				}
				rec[k.String()] = fromGJSON(v)
				return true
			})
		} else {
			keys = append(keys, ResultColumn)
			rec[ResultColumn] = fromGJSON(item)
		}
		if len(rows) == 0 {
			columns = keys
		}
		rows = append(rows, rec)
		return true
	})
	return New(columns, rows), nil
}

func fromGJSON(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return Null()
	case gjson.Number:
		return Number(r.Num)
	case gjson.String:
		return Text(r.Str)
	default:
		return Text(r.Raw)
	}
}

// Scan drains rows into a dataset using the driver's column order.
// Repeated column names, as from a join, get _2, _3... suffixes.
func Scan(rows *sql.Rows) (*Dataset, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	cols = UniqueColumns(cols)

	var out []Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			rec[c] = FromAny(values[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return New(cols, out), nil
}
