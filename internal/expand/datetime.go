// Package expand derives reporting columns from typed response fields:
// datetime fields split into date/time/weekday parts, duration fields into
// total seconds and clock renderings.
package expand

import "time"

// croatianDays maps time.Weekday to the Croatian day name. The export's
// secondary locale is fixed; a full CLDR dependency for seven strings is
// not worth carrying.
var croatianDays = [7]string{
	"nedjelja",    // Sunday
	"ponedjeljak", // Monday
	"utorak",      // Tuesday
	"srijeda",     // Wednesday
	"četvrtak",    // Thursday
	"petak",       // Friday
	"subota",      // Saturday
}

// DateTimeParts is one decomposed ISO-8601 timestamp.
type DateTimeParts struct {
	Date               string // 2006-01-02
	Time               string // 15:04:05
	DayOfWeek          string // English day name
	DayOfWeekSecondary string // Croatian day name
}

// isoLayouts are accepted timestamp layouts, most specific first.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDateTime decomposes an ISO-8601 timestamp. Returns ok=false for
// anything unparseable; callers leave the row untouched in that case.
func ParseDateTime(value string) (DateTimeParts, bool) {
	if value == "" {
		return DateTimeParts{}, false
	}

	var t time.Time
	var err error
	for _, layout := range isoLayouts {
		t, err = time.ParseInLocation(layout, value, time.UTC)
		if err == nil {
			break
		}
	}
	if err != nil {
		return DateTimeParts{}, false
	}

	t = t.UTC()
	return DateTimeParts{
		Date:               t.Format("2006-01-02"),
		Time:               t.Format("15:04:05"),
		DayOfWeek:          t.Weekday().String(),
		DayOfWeekSecondary: croatianDays[int(t.Weekday())],
	}, true
}
