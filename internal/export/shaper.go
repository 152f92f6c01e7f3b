// Package export shapes expanded datasets into flat tables and writes them
// to CSV or XLSX files.
package export

import (
	"encoding/json"
	"fmt"

	"github.com/mhorvat/xapiport/internal/expand"
	"github.com/mhorvat/xapiport/internal/models"
)

// Headers derives the full export header list: each base column followed
// immediately by its derived sub-columns, in schema order.
func Headers(schema *models.ColumnSchema) []string {
	headers := make([]string, 0, len(schema.Columns))
	for _, col := range schema.Columns {
		headers = append(headers, col.Name)
		switch col.Type {
		case models.FieldDatetime:
			headers = append(headers,
				col.Name+expand.SuffixDate,
				col.Name+expand.SuffixTime,
				col.Name+expand.SuffixDayOfWeekPrimary,
				col.Name+expand.SuffixDayOfWeekSecondary,
			)
		case models.FieldDuration:
			headers = append(headers,
				col.Name+expand.SuffixSeconds,
				col.Name+expand.SuffixHHMMSS,
			)
		}
	}
	return headers
}

// Normalize flattens rows against the header list: every output row carries
// exactly the header set. Missing values become empty strings, structured
// values are serialized to their JSON form, scalars pass through unchanged.
func Normalize(rows []map[string]any, headers []string) []map[string]any {
	normalized := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		flat := make(map[string]any, len(headers))
		for _, header := range headers {
			value, ok := row[header]
			if !ok || value == nil {
				flat[header] = ""
				continue
			}
			switch value.(type) {
			case map[string]any, []any:
				encoded, err := json.Marshal(value)
				if err != nil {
					flat[header] = fmt.Sprintf("%v", value)
					continue
				}
				flat[header] = string(encoded)
			default:
				flat[header] = value
			}
		}
		normalized = append(normalized, flat)
	}
	return normalized
}

// cell renders one normalized value for a file writer.
func cell(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
