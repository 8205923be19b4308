package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Publication dates are rarely structured in article bodies, so a small
// set of patterns covers the formats news sites actually use.
var (
	isoDateRe     = regexp.MustCompile(`\b(\d{4})[-./](\d{1,2})[-./](\d{1,2})\b`)
	usLongDateRe  = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	dayFirstRe    = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(January|February|March|April|May|June|July|August|September|October|November|December),?\s+(\d{4})\b`)
)

var monthNumbers = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,
}

// ExtractDate scans text for the first recognizable publication date
// and returns it in ISO form (YYYY-MM-DD), or "" when nothing matches.
func ExtractDate(text string) string {
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		if d := buildDate(m[1], m[2], m[3]); d != "" {
			return d
		}
	}
	if m := usLongDateRe.FindStringSubmatch(text); m != nil {
		month := monthNumbers[strings.ToLower(m[1])]
		if d := buildDate(m[3], strconv.Itoa(month), m[2]); d != "" {
			return d
		}
	}
	if m := dayFirstRe.FindStringSubmatch(text); m != nil {
		month := monthNumbers[strings.ToLower(m[2])]
		if d := buildDate(m[3], strconv.Itoa(month), m[1]); d != "" {
			return d
		}
	}
	return ""
}

// buildDate validates components by round-tripping through time.Date.
func buildDate(year, month, day string) string {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if y < 1900 || y > 2200 || m < 1 || m > 12 || d < 1 || d > 31 {
		return ""
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}
