package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"bichat/internal/dataset"
)

// Output formats accepted by --format.
const (
	formatTable    = "table"
	formatJSON     = "json"
	formatCSV      = "csv"
	formatMarkdown = "md"
)

func renderDataset(w io.Writer, ds *dataset.Dataset, format string) error {
	switch format {
	case formatJSON:
		return renderJSON(w, ds)
	case formatCSV, formatMarkdown, "markdown":
		t := newTable(w, ds)
		if format == formatCSV {
			t.RenderCSV()
		} else {
			t.RenderMarkdown()
		}
		return nil
	case formatTable, "":
		if ds.IsEmpty() {
			fmt.Fprintln(w, "(0 rows)")
			return nil
		}
		newTable(w, ds).Render()
		fmt.Fprintf(w, "(%s rows)\n", humanize.Comma(int64(ds.Len())))
		return nil
	default:
		return fmt.Errorf("unknown format %q (want table, json, csv or md)", format)
	}
}

func newTable(w io.Writer, ds *dataset.Dataset) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	// column names are SQL identifiers; keep their case
	t.Style().Format.Header = text.FormatDefault

	cols := ds.Columns()
	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, rec := range ds.Rows() {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			row[i] = rec[c].String()
		}
		t.AppendRow(row)
	}
	return t
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
