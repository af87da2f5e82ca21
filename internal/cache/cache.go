// Package cache stores normalized event pages by query key. Entries are fresh
// while now - Timestamp < TTL; any mutation drops every entry.
package cache

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
)

const DefaultTTL = 60 * time.Second

// Entry is one cached page. Events are stored without presentation fields.
type Entry struct {
	Events     []domain.Event `json:"data"`
	TotalCount int            `json:"totalCount"`
	Timestamp  time.Time      `json:"timestamp"`
}

type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, e Entry) error
	InvalidateAll(ctx context.Context) error
}

func fresh(e Entry, now time.Time, ttl time.Duration) bool {
	return now.Sub(e.Timestamp) < ttl
}

func copyEvents(in []domain.Event) []domain.Event {
	if in == nil {
		return nil
	}
	out := make([]domain.Event, len(in))
	copy(out, in)
	return out
}
