package expand

import "github.com/mhorvat/xapiport/internal/models"

// Derived column name suffixes.
const (
	SuffixDate               = "_date"
	SuffixTime               = "_time"
	SuffixDayOfWeekPrimary   = "_dayOfWeekPrimary"
	SuffixDayOfWeekSecondary = "_dayOfWeekSecondary"
	SuffixSeconds            = "_seconds"
	SuffixHHMMSS             = "_hhmmss"
)

// Row adds the derived reporting columns for one row: every datetime column
// present in the row splits into date/time/weekday parts, every duration
// column into seconds and clock renderings. Unparseable values leave the
// row untouched for that column. The derivation depends only on the row and
// the schema, so a row expands identically no matter where it sits in the
// dataset.
func Row(row map[string]any, schema *models.ColumnSchema) {
	for _, col := range schema.Columns {
		raw, ok := row[col.Name]
		if !ok {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			continue
		}

		switch col.Type {
		case models.FieldDatetime:
			parts, ok := ParseDateTime(value)
			if !ok {
				continue
			}
			row[col.Name+SuffixDate] = parts.Date
			row[col.Name+SuffixTime] = parts.Time
			row[col.Name+SuffixDayOfWeekPrimary] = parts.DayOfWeek
			row[col.Name+SuffixDayOfWeekSecondary] = parts.DayOfWeekSecondary

		case models.FieldDuration:
			parts, ok := ParseDuration(value)
			if !ok {
				continue
			}
			row[col.Name+SuffixSeconds] = parts.Seconds
			row[col.Name+SuffixHHMMSS] = parts.HHMMSS
		}
	}
}

// Rows expands every row in place and returns the slice for chaining.
func Rows(rows []map[string]any, schema *models.ColumnSchema) []map[string]any {
	for _, row := range rows {
		Row(row, schema)
	}
	return rows
}
