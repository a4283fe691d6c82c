package ingest

import (
	"path/filepath"
	"slices"
	"strings"

	"bichat/internal/dataset"
)

var columnReplacer = strings.NewReplacer(" ", "_", "-", "_", ".", "_")

// CleanColumnName trims name and replaces spaces, dashes and dots with
// underscores.
func CleanColumnName(name string) string {
	return columnReplacer.Replace(strings.TrimSpace(name))
}

// CleanColumns renames every column with CleanColumnName. Collisions get a
// numeric suffix.
func CleanColumns(ds *dataset.Dataset) *dataset.Dataset {
	old := ds.Columns()
	cols := make([]string, len(old))
	for i, c := range old {
		cols[i] = CleanColumnName(c)
	}
	cols = dataset.UniqueColumns(cols)

	rows := make([]dataset.Record, 0, ds.Len())
	for _, r := range ds.Rows() {
		rec := make(dataset.Record, len(cols))
		for i, c := range old {
			rec[cols[i]] = r[c]
		}
		rows = append(rows, rec)
	}
	return dataset.New(cols, rows)
}

// TableName derives a table name from an upload's file name.
func TableName(fileName string) string {
	base := filepath.Base(fileName)
	return strings.ToLower(CleanColumnName(strings.TrimSuffix(base, filepath.Ext(base))))
}

// NullColumns returns, in column order, the columns with no non-blank cell.
func NullColumns(ds *dataset.Dataset) []string {
	out := []string{}
	for _, c := range ds.Columns() {
		if allNull(ds, c) {
			out = append(out, c)
		}
	}
	return out
}

func allNull(ds *dataset.Dataset, column string) bool {
	for _, r := range ds.Rows() {
		if !blank(r[column]) {
			return false
		}
	}
	return true
}

func blank(v dataset.Value) bool {
	return v.IsNull() || (v.Kind == dataset.KindText && strings.TrimSpace(v.Text) == "")
}

// Preprocess drops the named columns and then every row left without a
// non-blank cell. ErrNoData is returned when nothing remains.
func Preprocess(ds *dataset.Dataset, drop []string) (*dataset.Dataset, error) {
	cols := make([]string, 0, len(ds.Columns()))
	for _, c := range ds.Columns() {
		if !slices.Contains(drop, c) {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return nil, ErrNoData
	}

	rows := make([]dataset.Record, 0, ds.Len())
	for _, r := range ds.Rows() {
		rec := make(dataset.Record, len(cols))
		empty := true
		for _, c := range cols {
			rec[c] = r[c]
			if !blank(r[c]) {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, rec)
		}
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	return dataset.New(cols, rows), nil
}

// Prepare is the direct upload pipeline: drop all-null columns, drop empty
// rows and clean the column names.
func Prepare(ds *dataset.Dataset) (*dataset.Dataset, error) {
	cleaned, err := Preprocess(ds, NullColumns(ds))
	if err != nil {
		return nil, err
	}
	return CleanColumns(cleaned), nil
}
