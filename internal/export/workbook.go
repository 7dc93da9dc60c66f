// Package export writes on-screen report tables to xlsx workbooks.
package export

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultFileName is used when no context is available to name the file.
const DefaultFileName = "billable_report.xlsx"

const (
	defaultSheet = "Report"
	// TotalLabel heads the synthetic footer row.
	TotalLabel = "TOTAL"
	minWidth   = 8
	maxWidth   = 60
)

type Column struct {
	Header string
	// Width is a hint in characters; zero sizes the column from its content.
	Width float64
}

// Table is exactly what the user sees: the filtered rows in display form
// plus the footer row.
type Table struct {
	Sheet   string
	Columns []Column
	Rows    [][]string
	Total   []string
}

// Write renders t as a single worksheet workbook.
func Write(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Sheet)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Header
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	rowNum := 2
	for _, row := range t.Rows {
		if err := writeRow(f, sheet, rowNum, row); err != nil {
			return err
		}
		rowNum++
	}

	if len(t.Total) > 0 {
		if err := writeRow(f, sheet, rowNum, t.Total); err != nil {
			return err
		}
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("failed to create total style: %w", err)
		}
		last, _ := excelize.CoordinatesToCellName(len(t.Columns), rowNum)
		first, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err := f.SetCellStyle(sheet, first, last, style); err != nil {
			return fmt.Errorf("failed to style total row: %w", err)
		}
	}

	for i, width := range columnWidths(t) {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to name column %d: %w", i+1, err)
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set width of column %s: %w", col, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Bytes is Write into memory.
func Bytes(t Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, row []string) error {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}

func columnWidths(t Table) []float64 {
	widths := make([]float64, len(t.Columns))
	for i, c := range t.Columns {
		if c.Width > 0 {
			widths[i] = c.Width
			continue
		}
		longest := len([]rune(c.Header))
		measure := func(row []string) {
			if i < len(row) && len([]rune(row[i])) > longest {
				longest = len([]rune(row[i]))
			}
		}
		for _, row := range t.Rows {
			measure(row)
		}
		measure(t.Total)
		widths[i] = clamp(float64(longest + 2))
	}
	return widths
}

func clamp(w float64) float64 {
	if w < minWidth {
		return minWidth
	}
	if w > maxWidth {
		return maxWidth
	}
	return w
}

var invalidSheetChars = regexp.MustCompile(`[:\\/?*\[\]]`)

func sheetName(name string) string {
	name = strings.TrimSpace(invalidSheetChars.ReplaceAllString(name, " "))
	if name == "" {
		return defaultSheet
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

// ReadSheet returns every row of the first worksheet, header included.
func ReadSheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9]+`)

// FileName builds a deterministic xlsx name from the non-empty context parts,
// e.g. FileName("Jane Doe", "January 2026") is
// "Jane_Doe_January_2026_billable_report.xlsx". With no usable part it is
// DefaultFileName.
func FileName(parts ...string) string {
	var cleaned []string
	for _, p := range parts {
		p = strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(p), "_"), "_")
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return DefaultFileName
	}
	return strings.Join(cleaned, "_") + "_" + DefaultFileName
}
