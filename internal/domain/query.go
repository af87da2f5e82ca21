package domain

import (
	"fmt"
	"sort"
	"strings"
)

type DateFilter string

const (
	DateFilterNone     DateFilter = ""
	DateFilterToday    DateFilter = "today"
	DateFilterUpcoming DateFilter = "upcoming"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultSortBy   = "created_at"
)

// Query selects one page of events from the backend.
type Query struct {
	Statuses   []Status   `json:"statuses,omitempty"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	SortBy     string     `json:"sortBy"`
	SortOrder  SortOrder  `json:"sortOrder"`
	DateFilter DateFilter `json:"dateFilter,omitempty"`
}

// Normalize returns a copy with defaults applied and the status list
// upper-cased, deduplicated and sorted.
func (q Query) Normalize() (Query, error) {
	out := q.withDefaults()

	if out.PageSize > MaxPageSize {
		return Query{}, ErrValidationMeta("invalid query param", map[string]string{
			"limit": fmt.Sprintf("must be <= %d", MaxPageSize),
		})
	}
	if out.SortOrder != SortAsc && out.SortOrder != SortDesc {
		return Query{}, ErrValidationMeta("invalid query param", map[string]string{
			"sort_order": "must be one of: asc, desc",
		})
	}
	switch out.DateFilter {
	case DateFilterNone, DateFilterToday, DateFilterUpcoming:
	default:
		return Query{}, ErrValidationMeta("invalid query param", map[string]string{
			"date_filter": "must be one of: today, upcoming",
		})
	}
	return out, nil
}

func (q Query) withDefaults() Query {
	out := q
	if out.Page <= 0 {
		out.Page = 1
	}
	if out.PageSize <= 0 {
		out.PageSize = DefaultPageSize
	}
	out.SortBy = strings.TrimSpace(out.SortBy)
	if out.SortBy == "" {
		out.SortBy = DefaultSortBy
	}
	out.SortOrder = SortOrder(strings.ToLower(strings.TrimSpace(string(out.SortOrder))))
	if out.SortOrder == "" {
		out.SortOrder = SortDesc
	}
	out.DateFilter = DateFilter(strings.ToLower(strings.TrimSpace(string(out.DateFilter))))
	out.Statuses = canonicalStatuses(out.Statuses)
	return out
}

// Key identifies the query for caching and fetch de-duplication. Queries that
// differ only in status order, status case or omitted defaults share a key.
func (q Query) Key() string {
	n := q.withDefaults()
	statuses := make([]string, len(n.Statuses))
	for i, s := range n.Statuses {
		statuses[i] = string(s)
	}
	return fmt.Sprintf("status=%s|page=%d|limit=%d|sort=%s:%s|date=%s",
		strings.Join(statuses, ","), n.Page, n.PageSize, n.SortBy, n.SortOrder, n.DateFilter)
}

// WithPage returns a copy pointing at another page.
func (q Query) WithPage(page int) Query {
	q.Page = page
	return q
}

func canonicalStatuses(in []Status) []Status {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[Status]struct{}, len(in))
	out := make([]Status, 0, len(in))
	for _, s := range in {
		s = Status(strings.ToUpper(strings.TrimSpace(string(s))))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if len(out) == 0 {
		return nil
	}
	return out
}
