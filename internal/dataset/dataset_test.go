package dataset

import (
	"encoding/json"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"42", 42, true},
		{"  -3.5", -3.5, true},
		{"12 apples", 12, true},
		{"1.2.3", 1.2, true},
		{"1e3", 1000, true},
		{"1e", 1, true},
		{".5", 0.5, true},
		{"abc", 0, false},
		{"", 0, false},
		{"-", 0, false},
		{"$100", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}

	inf, ok := ParseNumber("-Infinity")
	require.True(t, ok)
	assert.True(t, math.IsInf(inf, -1))
}

func TestSafeNumber(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want float64
	}{
		{"number", Number(7.25), 7.25},
		{"grouped text", Text("1,234.50"), 1234.5},
		{"currency", Text("$99"), 99},
		{"negative text", Text("-12"), -12},
		{"letters", Text("abc"), 0},
		{"null", Null(), 0},
		{"nan", Number(math.NaN()), 0},
		{"bool text", Text("true"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeNumber(tt.in))
		})
	}
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "", Null().String())
	assert.Equal(t, "1200", Number(1200).String())
	assert.Equal(t, "0.5", Number(0.5).String())
	assert.Equal(t, "North", Text("North").String())
}

func TestFromJSONKeepsKeyOrder(t *testing.T) {
	ds, err := FromJSON([]byte(`[{"Region":"North","Sales":1200},{"Sales":"800","Region":"South","Extra":true}]`))
	require.NoError(t, err)

	assert.Equal(t, []string{"Region", "Sales"}, ds.Columns())
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, Number(1200), ds.Rows()[0]["Sales"])
	assert.Equal(t, Text("800"), ds.Rows()[1]["Sales"])
	assert.Equal(t, Text("true"), ds.Rows()[1]["Extra"])
}

func TestFromJSONShapes(t *testing.T) {
	t.Run("null", func(t *testing.T) {
		ds, err := FromJSON([]byte("null"))
		require.NoError(t, err)
		assert.True(t, ds.IsEmpty())
	})

	t.Run("empty array", func(t *testing.T) {
		ds, err := FromJSON([]byte("[]"))
		require.NoError(t, err)
		assert.True(t, ds.IsEmpty())
		assert.Empty(t, ds.Columns())
	})

	t.Run("single object", func(t *testing.T) {
		ds, err := FromJSON([]byte(`{"total": 5}`))
		require.NoError(t, err)
		assert.Equal(t, 1, ds.Len())
		assert.Equal(t, []string{"total"}, ds.Columns())
	})

	t.Run("scalars", func(t *testing.T) {
		ds, err := FromJSON([]byte(`["a", 2]`))
		require.NoError(t, err)
		assert.Equal(t, []string{ResultColumn}, ds.Columns())
		assert.Equal(t, Number(2), ds.Rows()[1][ResultColumn])
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := FromJSON([]byte(`[{"a":`))
		assert.ErrorIs(t, err, ErrInvalidJSON)
	})
}

func TestFromJSONColumnsFromFirstRecordOnly(t *testing.T) {
	ds, err := FromJSON([]byte(`[{}, {"a":1,"b":2}]`))
	require.NoError(t, err)

	assert.Equal(t, []string{}, ds.Columns())
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, Number(1), ds.Rows()[1]["a"])
}

func TestFromJSONRepeatedKey(t *testing.T) {
	ds, err := FromJSON([]byte(`[{"id":1,"name":"Acme","id":99}]`))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name"}, ds.Columns())
	assert.Equal(t, Number(99), ds.Rows()[0]["id"])

	out, err := json.Marshal(ds)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":99,"name":"Acme"}]`, string(out))
}

func TestUniqueColumns(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"no repeats", []string{"a", "b"}, []string{"a", "b"}},
		{"join", []string{"id", "amount", "id", "name"}, []string{"id", "amount", "id_2", "name"}},
		{"three times", []string{"id", "id", "id"}, []string{"id", "id_2", "id_3"}},
		{"suffix taken", []string{"id", "id_2", "id"}, []string{"id", "id_2", "id_3"}},
		{"empty", []string{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UniqueColumns(tt.in))
		})
	}
}

func TestMarshalJSONColumnOrder(t *testing.T) {
	ds := New([]string{"b", "a"}, []Record{
		{"a": Number(1), "b": Text("x")},
		{"a": Null()},
	})

	out, err := json.Marshal(ds)
	require.NoError(t, err)
	assert.Equal(t, `[{"b":"x","a":1},{"b":null,"a":null}]`, string(out))
}

func TestIsNumeric(t *testing.T) {
	rows := []Record{
		{"n": Number(1), "s": Text("a"), "sparse": Null()},
		{"n": Number(2), "s": Text("b"), "sparse": Null()},
		{"n": Text("3"), "s": Text("c"), "sparse": Null()},
		{"n": Null(), "s": Text("d"), "sparse": Number(4)},
	}
	ds := New([]string{"n", "s", "sparse"}, rows)

	assert.True(t, ds.IsNumeric("n"), "3 of 4 rows numeric")
	// Non-null text counts, so a text column passes the share test.
	assert.True(t, ds.IsNumeric("s"))
	assert.False(t, ds.IsNumeric("sparse"))
	assert.False(t, ds.IsNumeric("missing"))
	assert.False(t, Empty().IsNumeric("n"))
}

func TestIsNumericConcurrent(t *testing.T) {
	ds := New([]string{"n"}, []Record{{"n": Number(1)}, {"n": Number(2)}})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, ds.IsNumeric("n"))
		}()
	}
	wg.Wait()
}
