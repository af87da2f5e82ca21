package events

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/reconcile"
)

type Section struct {
	Events     []domain.Event `json:"events"`
	TotalCount int            `json:"totalCount"`
}

// Dashboard is the moderation summary.
type Dashboard struct {
	Pending  Section `json:"pending"`
	Today    Section `json:"today"`
	Upcoming Section `json:"upcoming"`
	Rejected Section `json:"rejected"`

	// Expiring counts pending events by expiry tier.
	Expiring    map[reconcile.Tier]int `json:"expiring"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

// DashboardQueries are the four summary queries, keyed by section name.
func DashboardQueries() map[string]domain.Query {
	return map[string]domain.Query{
		"pending":  {Statuses: []domain.Status{domain.StatusPending}, SortBy: "start_time", SortOrder: domain.SortAsc},
		"today":    {DateFilter: domain.DateFilterToday, SortBy: "start_time", SortOrder: domain.SortAsc},
		"upcoming": {DateFilter: domain.DateFilterUpcoming, SortBy: "start_time", SortOrder: domain.SortAsc},
		"rejected": {Statuses: []domain.Status{domain.StatusRejected}},
	}
}

// Dashboard fetches the four sections concurrently. Any failure fails the whole summary.
func (s *Service) Dashboard(ctx context.Context, opts FetchOptions) (Dashboard, error) {
	queries := DashboardQueries()
	sections := make(map[string]*Section, len(queries))
	for name := range queries {
		sections[name] = &Section{}
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, q := range queries {
		dst := sections[name]
		g.Go(func() error {
			page, err := s.Fetch(gctx, q, opts)
			if err != nil && !IsSuperseded(err) {
				return err
			}
			dst.Events = page.Events
			dst.TotalCount = page.TotalCount
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	now := s.clock.Now()
	d := Dashboard{
		Pending:     *sections["pending"],
		Today:       *sections["today"],
		Upcoming:    *sections["upcoming"],
		Rejected:    *sections["rejected"],
		Expiring:    ExpiryCounts(sections["pending"].Events, now),
		GeneratedAt: now,
	}
	return d, nil
}

// ExpiryCounts tallies pending events in each non-empty tier.
func ExpiryCounts(events []domain.Event, now time.Time) map[reconcile.Tier]int {
	counts := map[reconcile.Tier]int{
		reconcile.TierCritical: 0,
		reconcile.TierWarning:  0,
		reconcile.TierExpired:  0,
	}
	for _, ev := range events {
		if exp := reconcile.ComputeExpiry(ev, now); exp.Soon() {
			counts[exp.Tier]++
		}
	}
	return counts
}
