package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// maxColWidth caps the sized column width so one long cell cannot blow the
// sheet layout apart.
const maxColWidth = 60

// WriteXLSX writes headers plus normalized rows to an XLSX workbook with a
// styled header row and content-sized columns.
func WriteXLSX(filename string, headers []string, rows []map[string]any) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	headerRow := make([]any, len(headers))
	widths := make([]int, len(headers))
	for i, h := range headers {
		headerRow[i] = h
		widths[i] = len(h)
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for r, row := range rows {
		record := make([]any, len(headers))
		for i, header := range headers {
			record[i] = row[header]
			if w := len(cell(row[header])); w > widths[i] {
				widths[i] = w
			}
		}
		startCell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, startCell, &record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F2F2F2"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastHeaderCell, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return fmt.Errorf("failed to compute cell name: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeaderCell, headerStyle); err != nil {
		return fmt.Errorf("failed to style header row: %w", err)
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to compute column name: %w", err)
		}
		w := float64(width) + 2
		if w > maxColWidth {
			w = maxColWidth
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}

	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
