package downstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
)

// EventList is the result of probing a list response.
type EventList struct {
	Events []domain.RawEvent
	Total  int
	// Shape names the strategy that matched, "" when none did.
	Shape string
}

// shapeStrategy finds the event array in a decoded payload. container is the
// object holding the array, where a sibling total is looked up.
type shapeStrategy struct {
	name    string
	extract func(root any) (items []any, container map[string]any, ok bool)
}

// Order matters: first match wins.
var shapeStrategies = []shapeStrategy{
	{name: "data.events", extract: nestedDataEvents},
	{name: "array", extract: bareArray},
	{name: "data", extract: fieldArray("data")},
	{name: "events", extract: fieldArray("events")},
	{name: "scan", extract: scanEventArray},
}

var (
	siblingTotalKeys = []string{"total", "totalCount", "total_count", "count"}
	rootTotalKeys    = []string{"total", "totalCount", "total_count"}
	pagingObjects    = []string{"pagination", "meta"}
)

// ParseEventList decodes a list response body. Invalid JSON is
// ErrMalformedResponse; valid JSON without an event array is an empty list.
func ParseEventList(body []byte) (EventList, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return EventList{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	for _, s := range shapeStrategies {
		items, container, ok := s.extract(root)
		if !ok {
			continue
		}
		events := toRawEvents(items)
		return EventList{
			Events: events,
			Total:  scanTotal(root, container, len(events)),
			Shape:  s.name,
		}, nil
	}
	return EventList{Events: []domain.RawEvent{}}, nil
}

func nestedDataEvents(root any) ([]any, map[string]any, bool) {
	obj, ok := root.(map[string]any)
	if !ok {
		return nil, nil, false
	}
	data, ok := obj["data"].(map[string]any)
	if !ok {
		return nil, nil, false
	}
	items, ok := data["events"].([]any)
	return items, data, ok
}

func bareArray(root any) ([]any, map[string]any, bool) {
	items, ok := root.([]any)
	return items, nil, ok
}

func fieldArray(field string) func(any) ([]any, map[string]any, bool) {
	return func(root any) ([]any, map[string]any, bool) {
		obj, ok := root.(map[string]any)
		if !ok {
			return nil, nil, false
		}
		items, ok := obj[field].([]any)
		return items, obj, ok
	}
}

// scanEventArray looks for any array whose first element looks like an
// event, at the top level and then one object deeper. Keys are visited in
// sorted order so the choice is stable.
func scanEventArray(root any) ([]any, map[string]any, bool) {
	obj, ok := root.(map[string]any)
	if !ok {
		return nil, nil, false
	}
	if items, ok := eventArrayIn(obj); ok {
		return items, obj, true
	}
	for _, k := range sortedKeys(obj) {
		if nested, ok := obj[k].(map[string]any); ok {
			if items, ok := eventArrayIn(nested); ok {
				return items, nested, true
			}
		}
	}
	return nil, nil, false
}

func eventArrayIn(obj map[string]any) ([]any, bool) {
	for _, k := range sortedKeys(obj) {
		items, ok := obj[k].([]any)
		if !ok || len(items) == 0 {
			continue
		}
		if first, ok := items[0].(map[string]any); ok && domain.RawEvent(first).LooksLikeEvent() {
			return items, true
		}
	}
	return nil, false
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toRawEvents(items []any) []domain.RawEvent {
	out := make([]domain.RawEvent, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, domain.RawEvent(m))
		}
	}
	return out
}

func scanTotal(root any, container map[string]any, fallback int) int {
	if n, ok := domain.RawEvent(container).Int(siblingTotalKeys...); ok {
		return n
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return fallback
	}
	if n, ok := domain.RawEvent(obj).Int(rootTotalKeys...); ok {
		return n
	}
	for _, k := range pagingObjects {
		if paging, ok := obj[k].(map[string]any); ok {
			if n, ok := domain.RawEvent(paging).Int("total", "total_count", "totalCount"); ok {
				return n
			}
		}
	}
	return fallback
}
