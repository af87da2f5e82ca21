package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultLocation is the zone backend timestamps are displayed in: a fixed UTC+3.
var DefaultLocation = time.FixedZone("UTC+3", 3*60*60)

// LoadLocation resolves a display timezone. It accepts an IANA name
// ("Europe/Istanbul"), a fixed offset ("+03:00", "UTC+3") or "" for the default.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultLocation, nil
	}
	if loc, ok := parseOffset(name); ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load display timezone %q: %w", name, err)
	}
	return loc, nil
}

func parseOffset(s string) (*time.Location, bool) {
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "UTC"), "GMT")
	if raw == "" || (raw[0] != '+' && raw[0] != '-') {
		return nil, false
	}
	sign := 1
	if raw[0] == '-' {
		sign = -1
	}
	hh, mm, _ := strings.Cut(raw[1:], ":")
	h, err := strconv.Atoi(hh)
	if err != nil || h > 14 {
		return nil, false
	}
	m := 0
	if mm != "" {
		if m, err = strconv.Atoi(mm); err != nil || m >= 60 {
			return nil, false
		}
	}
	offset := sign * (h*3600 + m*60)
	return time.FixedZone(s, offset), true
}
