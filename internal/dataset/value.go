package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind tags the dynamic type of a cell.
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "null"
	}
}

// Value is a single cell of a query result. Cells arrive untyped from the
// database or the NL->SQL pipeline, so a Value is either null, a number or
// text.
type Value struct {
	Kind Kind
	Num  float64
	Text string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Number wraps a float.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Text wraps a string.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// IsNull reports whether the cell is null/absent.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// String stringifies the cell for display and filtering. Null becomes the
// empty string.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return formatFloat(v.Num)
	case KindText:
		return v.Text
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if abs := math.Abs(f); abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MarshalJSON encodes the cell as a JSON null, number or string.
// Non-finite numbers have no JSON form and are encoded as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return []byte("null"), nil
		}
		return []byte(strconv.FormatFloat(v.Num, 'f', -1, 64)), nil
	case KindText:
		return json.Marshal(v.Text)
	default:
		return []byte("null"), nil
	}
}

type float64er interface {
	Float64() float64
}

// FromAny converts a driver or decoded JSON value into a cell.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int8:
		return Number(float64(t))
	case int16:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint:
		return Number(float64(t))
	case uint8:
		return Number(float64(t))
	case uint16:
		return Number(float64(t))
	case uint32:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f)
		}
		return Text(t.String())
	case string:
		return Text(t)
	case []byte:
		return Text(string(t))
	case bool:
		return Text(strconv.FormatBool(t))
	case time.Time:
		return Text(t.Format(time.RFC3339))
	case float64er:
		return Number(t.Float64())
	case fmt.Stringer:
		return Text(t.String())
	default:
		return Text(fmt.Sprint(t))
	}
}
