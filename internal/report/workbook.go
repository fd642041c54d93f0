package report

import (
	"fmt"

	"github.com/oukeidos/jsontp/internal/files"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the review workbook.
const (
	SheetSummary   = "Summary"
	SheetAdded     = "Added"
	SheetRemoved   = "Removed"
	SheetUnchanged = "Unchanged"
)

// Row is one key of the review workbook. Old is empty for added keys and
// New is empty for removed ones.
type Row struct {
	Key    string
	Old    string
	New    string
	Action string
}

// SummaryItem is a label/value line on the summary sheet.
type SummaryItem struct {
	Label string
	Value any
}

// Review is the content of the reviewer workbook produced by analyze.
type Review struct {
	Summary   []SummaryItem
	Added     []Row
	Removed   []Row
	Unchanged []Row
}

// BuildWorkbook renders the review into a new excelize file.
func BuildWorkbook(r Review) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(SheetSummary, "A1", &[]any{"Item", "Value"}); err != nil {
		return nil, err
	}
	for i, item := range r.Summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetSummary, cell, &[]any{item.Label, item.Value}); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(SheetSummary, "A1", "B1", header); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetSummary, "A", "A", 28); err != nil {
		return nil, err
	}

	sheets := []struct {
		name    string
		columns []any
		rows    []Row
		values  func(Row) []any
	}{
		{SheetAdded, []any{"Key", "Source", "Action"}, r.Added, func(row Row) []any { return []any{row.Key, row.New, row.Action} }},
		{SheetRemoved, []any{"Key", "Old value"}, r.Removed, func(row Row) []any { return []any{row.Key, row.Old} }},
		{SheetUnchanged, []any{"Key", "Old value", "New value"}, r.Unchanged, func(row Row) []any { return []any{row.Key, row.Old, row.New} }},
	}
	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(s.name, "A1", &s.columns); err != nil {
			return nil, err
		}
		last, _ := excelize.CoordinatesToCellName(len(s.columns), 1)
		if err := f.SetCellStyle(s.name, "A1", last, header); err != nil {
			return nil, err
		}
		for i, row := range s.rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			values := s.values(row)
			if err := f.SetSheetRow(s.name, cell, &values); err != nil {
				return nil, fmt.Errorf("sheet %s row %d: %w", s.name, i+2, err)
			}
		}
		lastCol, _ := excelize.ColumnNumberToName(len(s.columns))
		if err := f.SetColWidth(s.name, "A", lastCol, 40); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// WriteWorkbook builds the review workbook and writes it atomically.
func WriteWorkbook(path string, r Review) error {
	f, err := BuildWorkbook(r)
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("failed to encode workbook: %w", err)
	}
	return files.AtomicWrite(path, buf.Bytes(), 0644)
}
