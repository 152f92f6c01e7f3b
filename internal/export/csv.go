package export

import (
	"encoding/csv"
	"fmt"
	"os"
)

// utf8BOM makes Excel detect the encoding when it opens the CSV directly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes headers plus normalized rows to a CSV file.
func WriteCSV(filename string, headers []string, rows []map[string]any) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	record := make([]string, len(headers))
	for _, row := range rows {
		for i, header := range headers {
			record[i] = cell(row[header])
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
