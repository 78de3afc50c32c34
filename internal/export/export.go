// Package export writes snapshot datasets to spreadsheet-friendly files.
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leapstack-labs/airprep/internal/table"
	"github.com/leapstack-labs/airprep/pkg/core"
	"github.com/xuri/excelize/v2"
)

// Formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// sheetName is the worksheet holding the dataset in XLSX exports.
const sheetName = "data"

// FormatFor returns the export format implied by the output path.
func FormatFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

// File writes ds to path in the format implied by its extension.
// Missing values become empty cells.
func File(path string, ds *core.Dataset) error {
	switch FormatFor(path) {
	case FormatXLSX:
		return table.WriteAtomic(path, func(w io.Writer) error { return WriteXLSX(w, ds) })
	default:
		return table.WriteFile(path, ToTable(ds))
	}
}

// ToTable converts ds into a text table in column order.
func ToTable(ds *core.Dataset) *table.Table {
	t := &table.Table{Header: ds.Columns(), Rows: make([][]string, len(ds.Records))}
	for i := range ds.Records {
		cells := ds.Row(i)
		row := make([]string, len(cells))
		for j, c := range cells {
			row[j] = FormatCell(c)
		}
		t.Rows[i] = row
	}
	return t
}

// FormatCell renders one dataset cell as text.
func FormatCell(c any) string {
	switch v := c.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// WriteXLSX writes ds as a single-sheet workbook.
func WriteXLSX(w io.Writer, ds *core.Dataset) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet writer: %w", err)
	}

	header := make([]interface{}, 0, len(ds.Columns()))
	for _, col := range ds.Columns() {
		header = append(header, col)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range ds.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, ds.Row(i)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
