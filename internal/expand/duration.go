package expand

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Fixed second conversions for calendar components.
const (
	secondsPerYear   = 31536000 // 365 days
	secondsPerMonth  = 2592000  // 30 days
	secondsPerWeek   = 604800
	secondsPerDay    = 86400
	secondsPerHour   = 3600
	secondsPerMinute = 60
)

// durationRe matches ISO-8601 durations. The time section (the T group) is
// mandatory: a duration carrying only calendar components, e.g. "P3D", is
// not recognized. Known limitation inherited from the deployed parser;
// changing it silently would alter existing report output.
var durationRe = regexp.MustCompile(`P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)`)

// DurationParts is one decomposed ISO-8601 duration.
type DurationParts struct {
	Seconds  int64  // total seconds, fractional part rounded
	HHMMSS   string // zero-padded clock rendering of the total
	Readable string // compact token form omitting zero components, e.g. "1DT02:30:00"
}

// ParseDuration decomposes an ISO-8601 duration string. Returns ok=false
// for anything unrecognized; callers add no derived columns in that case.
func ParseDuration(value string) (DurationParts, bool) {
	if value == "" || !strings.HasPrefix(value, "P") {
		return DurationParts{}, false
	}

	m := durationRe.FindStringSubmatch(value)
	if m == nil {
		return DurationParts{}, false
	}

	years := atoi(m[1])
	months := atoi(m[2])
	weeks := atoi(m[3])
	days := atoi(m[4])
	hours := atoi(m[5])
	minutes := atoi(m[6])

	var seconds float64
	if m[7] != "" {
		seconds, _ = strconv.ParseFloat(m[7], 64)
	}

	total := int64(years)*secondsPerYear +
		int64(months)*secondsPerMonth +
		int64(weeks)*secondsPerWeek +
		int64(days)*secondsPerDay +
		int64(hours)*secondsPerHour +
		int64(minutes)*secondsPerMinute +
		int64(math.Round(seconds))

	hh := total / secondsPerHour
	mm := (total % secondsPerHour) / secondsPerMinute
	ss := total % secondsPerMinute

	var tokens []string
	if years > 0 {
		tokens = append(tokens, fmt.Sprintf("%dY", years))
	}
	if months > 0 {
		tokens = append(tokens, fmt.Sprintf("%dM", months))
	}
	if weeks > 0 {
		tokens = append(tokens, fmt.Sprintf("%dW", weeks))
	}
	if days > 0 {
		tokens = append(tokens, fmt.Sprintf("%dD", days))
	}
	if hours > 0 || minutes > 0 || seconds > 0 {
		tokens = append(tokens, fmt.Sprintf("T%02d:%02d:%02d", hours, minutes, ss))
	}

	return DurationParts{
		Seconds:  total,
		HHMMSS:   fmt.Sprintf("%02d:%02d:%02d", hh, mm, ss),
		Readable: strings.Join(tokens, ""),
	}, true
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
