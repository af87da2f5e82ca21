package events

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/guard"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/reconcile"
)

// Sentinels accepted by View.FetchByStatus besides a plain status.
const (
	SelectAll      = "ALL"
	SelectToday    = "TODAY"
	SelectUpcoming = "UPCOMING"
)

// State is what a consumer renders.
type State struct {
	Events      []domain.Event   `json:"events"`
	Loading     bool             `json:"loading"`
	Error       *domain.AppError `json:"error,omitempty"`
	TotalCount  int              `json:"totalCount"`
	LastUpdated time.Time        `json:"lastUpdated"`
	Query       domain.Query     `json:"query"`
}

// View is one mounted consumer of the data layer. It keeps a single page
// snapshot for its active query; mutations patch that snapshot after the
// backend confirms them, and everything derived is computed on read.
type View struct {
	svc   *Service
	guard *guard.Guard

	mu      sync.Mutex
	query   domain.Query
	page    domain.Page
	loading bool
	err     *domain.AppError
	gen     uint64
	mounted map[string]struct{}
}

type ViewOption func(*View)

// WithGuard replaces the service-wide guard, e.g. with one scoped to a request.
func WithGuard(g *guard.Guard) ViewOption {
	return func(v *View) { v.guard = g }
}

func (s *Service) NewView(q domain.Query, opts ...ViewOption) *View {
	v := &View{
		svc:     s,
		guard:   s.guard,
		query:   q,
		mounted: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Mount performs the initial fetch for the active query at most once while
// mounted. When another consumer already holds the key, the view fills
// itself from the cache, or waits on that consumer's load when it is still
// in flight.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	q := v.query
	v.mu.Unlock()

	nq, err := q.Normalize()
	if err != nil {
		v.fail(err)
		return err
	}
	key := nq.Key()

	ran, err := v.guard.Run(ctx, key, func(ctx context.Context) error {
		v.mu.Lock()
		v.mounted[key] = struct{}{}
		v.mu.Unlock()
		return v.fetch(ctx, nq, FetchOptions{})
	})
	if ran {
		return err
	}
	if page, ok := v.svc.Peek(ctx, nq); ok {
		v.apply(v.begin(nq), page)
		return nil
	}
	return v.fetch(ctx, nq, FetchOptions{})
}

// Close releases the keys this view marked so the next mount fetches afresh.
func (v *View) Close() {
	v.mu.Lock()
	keys := make([]string, 0, len(v.mounted))
	for k := range v.mounted {
		keys = append(keys, k)
	}
	clear(v.mounted)
	v.gen++
	v.loading = false
	v.mu.Unlock()

	for _, k := range keys {
		v.guard.Release(k)
	}
}

// FetchEvents makes q the active query and loads it.
func (v *View) FetchEvents(ctx context.Context, q domain.Query, opts FetchOptions) error {
	nq, err := q.Normalize()
	if err != nil {
		v.fail(err)
		return err
	}
	return v.fetch(ctx, nq, opts)
}

// FetchByStatus loads page one of a status or of a sentinel selection,
// keeping the active page size and sort.
func (v *View) FetchByStatus(ctx context.Context, sel string) error {
	v.mu.Lock()
	base := v.query
	v.mu.Unlock()

	q, err := SelectQuery(base, sel)
	if err != nil {
		v.fail(err)
		return err
	}
	return v.FetchEvents(ctx, q, FetchOptions{})
}

// SelectQuery expands a status or sentinel into a query derived from base.
func SelectQuery(base domain.Query, sel string) (domain.Query, error) {
	q := domain.Query{
		Page:      1,
		PageSize:  base.PageSize,
		SortBy:    base.SortBy,
		SortOrder: base.SortOrder,
	}
	switch strings.ToUpper(strings.TrimSpace(sel)) {
	case SelectAll, "":
	case SelectToday:
		q.DateFilter = domain.DateFilterToday
	case SelectUpcoming:
		q.DateFilter = domain.DateFilterUpcoming
	default:
		status := reconcile.MapStatus(sel)
		if !status.Canonical() {
			return domain.Query{}, domain.ErrValidationMeta("invalid status", map[string]string{
				"status": "must be a status or one of: ALL, TODAY, UPCOMING",
			})
		}
		q.Statuses = []domain.Status{status}
	}
	return q, nil
}

// TriggerRefresh reloads the active query from the backend.
func (v *View) TriggerRefresh(ctx context.Context) error {
	v.mu.Lock()
	q := v.query
	v.mu.Unlock()
	return v.FetchEvents(ctx, q, FetchOptions{Force: true})
}

func (v *View) fetch(ctx context.Context, q domain.Query, opts FetchOptions) error {
	gen := v.begin(q)

	page, err := v.svc.Fetch(ctx, q, opts)
	switch {
	case err == nil:
		v.apply(gen, page)
		return nil
	case IsSuperseded(err):
		// A newer response for this key owns the cache now.
		if cached, ok := v.svc.Peek(ctx, q); ok {
			page = cached
		}
		v.apply(gen, page)
		return nil
	default:
		v.settleError(gen, err)
		return Classify(err)
	}
}

// begin starts a load of q and returns its generation.
func (v *View) begin(q domain.Query) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.query = q
	v.loading = true
	return v.gen
}

func (v *View) apply(gen uint64, page domain.Page) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return
	}
	v.page = page
	v.loading = false
	v.err = nil
}

func (v *View) settleError(gen uint64, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return
	}
	v.loading = false
	v.err = asAppError(err)
	if v.err != nil && v.err.Kind == domain.KindAuth {
		v.page = domain.Page{}
	}
}

func (v *View) fail(err error) {
	v.mu.Lock()
	v.err = asAppError(err)
	v.mu.Unlock()
}

// UpdateEventStatus applies a status change and patches the snapshot.
func (v *View) UpdateEventStatus(ctx context.Context, id string, status domain.Status) error {
	status = reconcile.MapStatus(string(status))
	if cur, ok := v.find(id); ok && cur.Status.Canonical() && !domain.CanTransition(cur.Status, status) {
		return domain.ErrInvalidState("cannot move event from " + string(cur.Status) + " to " + string(status))
	}
	if err := v.svc.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	v.patch(func(events []domain.Event) []domain.Event {
		for i := range events {
			if events[i].ID == id {
				events[i].Status = status
			}
		}
		return events
	}, 0)
	return nil
}

// UpdateEvent sends an edit and replaces the event in the snapshot.
func (v *View) UpdateEvent(ctx context.Context, ev domain.Event) error {
	if err := v.svc.UpdateEvent(ctx, ev); err != nil {
		return err
	}
	if start, err := v.svc.Reconciler().StartInstant(ev.Date, ev.Time); err == nil {
		ev.StartsAt = start
	}
	ev = ev.ClearDerived()
	v.patch(func(events []domain.Event) []domain.Event {
		for i := range events {
			if events[i].ID == ev.ID {
				events[i] = ev
			}
		}
		return events
	}, 0)
	return nil
}

func (v *View) DeleteEvent(ctx context.Context, id string) error {
	if err := v.svc.DeleteEvent(ctx, id); err != nil {
		return err
	}
	v.patch(func(events []domain.Event) []domain.Event {
		return slices.DeleteFunc(events, func(e domain.Event) bool { return e.ID == id })
	}, -1)
	return nil
}

// patch rewrites a copy of the snapshot's events. delta adjusts the total
// when an event was actually removed.
func (v *View) patch(fn func([]domain.Event) []domain.Event, delta int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	before := len(v.page.Events)
	events := fn(slices.Clone(v.page.Events))
	if delta != 0 && len(events) != before {
		v.page.TotalCount = max(0, v.page.TotalCount+delta*(before-len(events)))
	}
	v.page.Events = events
}

func (v *View) find(id string) (domain.Event, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, e := range v.page.Events {
		if e.ID == id {
			return e, true
		}
	}
	return domain.Event{}, false
}

// Snapshot returns the current state with presentation fields computed now.
func (v *View) Snapshot() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return State{
		Events:      reconcile.DecorateAll(v.page.Events, v.svc.Now()),
		Loading:     v.loading,
		Error:       v.err,
		TotalCount:  v.page.TotalCount,
		LastUpdated: v.page.FetchedAt,
		Query:       v.query,
	}
}

func (v *View) PendingEvents() []domain.Event {
	return v.filter(func(e domain.Event, _ string) bool { return e.Status == domain.StatusPending })
}

func (v *View) RejectedEvents() []domain.Event {
	return v.filter(func(e domain.Event, _ string) bool { return e.Status == domain.StatusRejected })
}

// TodayEvents are events dated today in the display location.
func (v *View) TodayEvents() []domain.Event {
	return v.filter(func(e domain.Event, today string) bool { return e.Date == today })
}

// UpcomingEvents are open events dated after today.
func (v *View) UpcomingEvents() []domain.Event {
	return v.filter(func(e domain.Event, today string) bool {
		return e.Date > today && !e.Status.Terminal()
	})
}

func (v *View) filter(keep func(domain.Event, string) bool) []domain.Event {
	today := v.svc.Reconciler().Today()
	var out []domain.Event
	for _, e := range v.Snapshot().Events {
		if keep(e, today) {
			out = append(out, e)
		}
	}
	return out
}
