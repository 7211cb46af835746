package coi

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const monthPattern = `(JAN(?:UARY)?|FEB(?:RUARY)?|MAR(?:CH)?|APR(?:IL)?|MAY|JUNE?|JULY?|AUG(?:UST)?|SEPT?(?:EMBER)?|OCT(?:OBER)?|NOV(?:EMBER)?|DEC(?:EMBER)?)`

var (
	isoDateRe = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	usDateRe  = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})\b`)

	// numericDateRe locates a date token on a labelled line before it is parsed.
	numericDateRe = regexp.MustCompile(`\b(?:\d{4}-\d{1,2}-\d{1,2}|\d{1,2}[/-]\d{1,2}[/-](?:\d{4}|\d{2}))\b`)

	monthDayYearRe = regexp.MustCompile(`(?i)\b` + monthPattern + `\.?\s+(\d{1,2})(?:ST|ND|RD|TH)?,?\s+(\d{4})\b`)
	dayMonthYearRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:ST|ND|RD|TH)?\s+` + monthPattern + `\.?,?\s+(\d{4})\b`)

	months = map[string]time.Month{
		"JAN": time.January, "FEB": time.February, "MAR": time.March, "APR": time.April,
		"MAY": time.May, "JUN": time.June, "JUL": time.July, "AUG": time.August,
		"SEP": time.September, "OCT": time.October, "NOV": time.November, "DEC": time.December,
	}

	fallbackLayouts = []string{
		time.RFC3339,
		"2006/01/02",
		"2006.01.02",
		"02.01.2006",
		"January 2 2006",
		"2 January 2006",
		"02-Jan-2006",
		"Jan-02-2006",
		"Monday, January 2, 2006",
		"20060102",
	}
)

// ParseDate reads a policy date. Formats are tried in order: ISO (YYYY-MM-DD),
// US numeric (MM/DD/YYYY or MM-DD-YY, two-digit years are 20xx), spelled-out month
// names, then a list of generic layouts. Results are midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		if t, ok := buildDate(m[1], m[2], m[3]); ok {
			return t, true
		}
	}
	if t, ok := parseUSDate(s); ok {
		return t, true
	}
	if t, ok := parseSpelledDate(s); ok {
		return t, true
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func parseUSDate(s string) (time.Time, bool) {
	m := usDateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	year := m[3]
	if len(year) == 2 {
		year = "20" + year
	}
	return buildDate(year, m[1], m[2])
}

// parseSpelledDate accepts "March 5, 2026", "Mar 5th 2026" and "5 March 2026".
func parseSpelledDate(s string) (time.Time, bool) {
	if m := monthDayYearRe.FindStringSubmatch(s); m != nil {
		if mon, ok := monthFromName(m[1]); ok {
			return buildDate(m[3], strconv.Itoa(int(mon)), m[2])
		}
	}
	if m := dayMonthYearRe.FindStringSubmatch(s); m != nil {
		if mon, ok := monthFromName(m[2]); ok {
			return buildDate(m[3], strconv.Itoa(int(mon)), m[1])
		}
	}
	return time.Time{}, false
}

func monthFromName(name string) (time.Month, bool) {
	name = strings.ToUpper(name)
	if len(name) < 3 {
		return 0, false
	}
	m, ok := months[name[:3]]
	return m, ok
}

// buildDate rejects out-of-range components instead of letting time.Date normalise them.
func buildDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	mo, err := strconv.Atoi(month)
	if err != nil || mo < 1 || mo > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != mo {
		return time.Time{}, false
	}
	return t, true
}
