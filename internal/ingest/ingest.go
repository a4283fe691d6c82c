// Package ingest turns uploaded spreadsheets into record sets ready to be
// stored: header detection, null-column analysis and column name cleanup.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"bichat/internal/dataset"
)

var (
	ErrNoData            = errors.New("no data found in file")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Extensions accepted by Read.
var Extensions = []string{".xlsx", ".xlsm", ".csv"}

// Read parses an upload named name. The first row is the header.
func Read(name string, r io.Reader) (*dataset.Dataset, error) {
	var (
		grid [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx", ".xlsm":
		grid, err = readExcel(r)
	case ".csv":
		grid, err = readCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q (expected one of %s)", ErrUnsupportedFormat, ext, strings.Join(Extensions, ", "))
	}
	if err != nil {
		return nil, err
	}
	return fromGrid(grid)
}

func readExcel(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoData
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rows, nil
}

func fromGrid(grid [][]string) (*dataset.Dataset, error) {
	// Skip leading blank rows so the header is the first populated row.
	for len(grid) > 0 && blankRow(grid[0]) {
		grid = grid[1:]
	}
	if len(grid) == 0 {
		return nil, ErrNoData
	}

	header := grid[0]
	cols := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		cols[i] = name
	}
	cols = dataset.UniqueColumns(cols)

	rows := make([]dataset.Record, 0, len(grid)-1)
	for _, line := range grid[1:] {
		rec := make(dataset.Record, len(cols))
		for i, c := range cols {
			if i < len(line) && strings.TrimSpace(line[i]) != "" {
				rec[c] = dataset.Text(line[i])
			} else {
				rec[c] = dataset.Null()
			}
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	return dataset.New(cols, rows), nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
