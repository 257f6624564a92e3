package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// EventDatePattern matches "DD monthname YYYY".
var EventDatePattern = regexp.MustCompile(`(?i)^(\d{1,2}) (\p{L}+) (\d{4})$`)

// monthNames maps lowercase month tokens (Dutch, English, French) to months.
var monthNames = map[string]time.Month{
	"januari": time.January, "january": time.January, "janvier": time.January, "jan": time.January,
	"februari": time.February, "february": time.February, "février": time.February, "fevrier": time.February, "feb": time.February, "fév": time.February,
	"maart": time.March, "march": time.March, "mars": time.March, "mrt": time.March, "mar": time.March,
	"april": time.April, "avril": time.April, "apr": time.April, "avr": time.April,
	"mei": time.May, "may": time.May, "mai": time.May,
	"juni": time.June, "june": time.June, "juin": time.June, "jun": time.June,
	"juli": time.July, "july": time.July, "juillet": time.July, "jul": time.July,
	"augustus": time.August, "august": time.August, "août": time.August, "aout": time.August, "aug": time.August,
	"september": time.September, "septembre": time.September, "sep": time.September, "sept": time.September,
	"oktober": time.October, "october": time.October, "octobre": time.October, "okt": time.October, "oct": time.October,
	"november": time.November, "novembre": time.November, "nov": time.November,
	"december": time.December, "décembre": time.December, "decembre": time.December, "dec": time.December, "déc": time.December,
}

// ParseEventDate parses a "DD monthname YYYY" date. ok is false when the string does not
// match the pattern, the month token is unknown or the day does not exist in that month.
func ParseEventDate(s string) (time.Time, bool) {
	m := EventDatePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}

	month, ok := monthNames[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, false
	}

	year, err := strconv.Atoi(m[3])
	if err != nil {
		return time.Time{}, false
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalises overflow (31 juni -> 1 juli); reject those.
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}

	return t, true
}

// CompareEventDates orders two date strings by calendar value. Unparseable dates sort after
// parseable ones and compare equal among themselves.
func CompareEventDates(a, b string) int {
	ta, okA := ParseEventDate(a)
	tb, okB := ParseEventDate(b)

	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	}

	return ta.Compare(tb)
}
