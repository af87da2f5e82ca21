package reconcile

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var bareClock = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseTimestamp reads a full date-time. Values without a zone are UTC.
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseClock reads HH:MM[:SS].
func parseClock(s string) (h, m, sec int, ok bool) {
	match := bareClock.FindStringSubmatch(s)
	if match == nil {
		return 0, 0, 0, false
	}
	h, _ = strconv.Atoi(match[1])
	m, _ = strconv.Atoi(match[2])
	if match[3] != "" {
		sec, _ = strconv.Atoi(match[3])
	}
	if h > 23 || m > 59 || sec > 59 {
		return 0, 0, 0, false
	}
	return h, m, sec, true
}

// anchorDay picks the UTC calendar day a bare clock time belongs to: the
// event's own date when it has one, otherwise today.
func anchorDay(rawDate string, now time.Time) (int, time.Month, int) {
	rawDate = strings.TrimSpace(rawDate)
	if d, ok := parseDate(rawDate); ok {
		return d.Date()
	}
	if ts, ok := parseTimestamp(rawDate); ok {
		return ts.Date()
	}
	return now.UTC().Date()
}

// resolveInstant turns a start/end field into an instant. Bare clock times
// are read as UTC on the anchor day.
func resolveInstant(value, rawDate string, now time.Time) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if h, m, s, ok := parseClock(value); ok {
		y, mon, d := anchorDay(rawDate, now)
		return time.Date(y, mon, d, h, m, s, 0, time.UTC), true
	}
	return parseTimestamp(value)
}
