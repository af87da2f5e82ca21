package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawEvent is one backend event as decoded from JSON (numbers as json.Number).
// Field names vary between backend versions, so accessors take alternatives
// in order of preference.
type RawEvent map[string]any

// LooksLikeEvent is the heuristic used when probing unknown payloads.
func (r RawEvent) LooksLikeEvent() bool {
	_, hasTitle := r["title"]
	_, hasStatus := r["status"]
	return hasTitle && hasStatus
}

// Value returns the first present, non-null value among keys.
func (r RawEvent) Value(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String returns the first non-empty scalar among keys, trimmed.
func (r RawEvent) String(keys ...string) string {
	for _, k := range keys {
		if s, ok := scalarString(r[k]); ok && s != "" {
			return s
		}
	}
	return ""
}

// Int returns the first value among keys that can be read as an integer.
// Arrays count as their length.
func (r RawEvent) Int(keys ...string) (int, bool) {
	for _, k := range keys {
		if n, ok := AsInt(r[k]); ok {
			return n, true
		}
	}
	return 0, false
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}

// AsInt reads loosely typed JSON numbers.
func AsInt(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true
		}
		if f, err := t.Float64(); err == nil {
			return int(f), true
		}
	case float64:
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return i, true
		}
	case []any:
		return len(t), true
	}
	return 0, false
}
