// Package timeutil normalizes the many timestamp shapes the feed sees
// (RFC 2822 mail headers, Twitter's ruby-style dates, bare ISO strings) into
// the RFC3339 UTC form stored in the feed table.
package timeutil

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const naiveLayout = "2006-01-02T15:04:05"

var zonedSuffix = regexp.MustCompile(`([+-]\d{2}:?\d{2}|Z)$`)

// UTCString renders a time in the canonical stored form: RFC3339 in UTC,
// second precision, Z suffix.
func UTCString(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// ParseToUTC parses a timestamp of unknown format. Values without timezone
// information are interpreted as UTC.
func ParseToUTC(raw string) (time.Time, error) {
	t, err := dateparse.ParseIn(strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// NormalizeOrNow converts an origin-side timestamp into the canonical stored
// form, falling back to the current time when the value is empty or
// unparseable. Ingest paths always get a usable created_at.
func NormalizeOrNow(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return UTCString(time.Now())
	}
	t, err := ParseToUTC(raw)
	if err != nil {
		return UTCString(time.Now())
	}
	return UTCString(t)
}

// SanitizeDisplay normalizes a stored timestamp for API responses. Zoned
// values become RFC3339 UTC with a Z suffix, naive values keep their local
// reading without a zone marker, and placeholder values ("NaT", "NaN")
// collapse to the empty string. Unparseable strings pass through unchanged.
func SanitizeDisplay(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	switch strings.ToLower(trimmed) {
	case "nat", "nan":
		return ""
	}

	if zonedSuffix.MatchString(trimmed) {
		t, err := ParseToUTC(trimmed)
		if err != nil {
			return trimmed
		}
		return UTCString(t)
	}

	t, err := dateparse.ParseIn(trimmed, time.UTC)
	if err != nil {
		return trimmed
	}
	return t.Truncate(time.Second).Format(naiveLayout)
}
