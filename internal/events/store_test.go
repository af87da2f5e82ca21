package events

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"
	"go.opentelemetry.io/otel/trace"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/downstream"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/notify"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/reconcile"
)

// fakeStore is an in-memory events backend that filters, sorts by
// created_at desc and pages like the real one.
type fakeStore struct {
	mu      sync.Mutex
	events  []domain.RawEvent
	lists   atomic.Int32
	muts    atomic.Int32
	listErr error
	mutErr  error
	// hook, when set, runs before each list with the 1-based call number.
	hook func(ctx context.Context, call int32) error
	// afterRead runs once a list has read the data but before it returns.
	afterRead func(ctx context.Context, call int32) error
	reads     atomic.Int32

	// spans holds the span context each mutation was called with.
	spans []trace.SpanContext
}

func newFakeStore(events ...domain.RawEvent) *fakeStore {
	return &fakeStore{events: events}
}

func (f *fakeStore) ListEvents(ctx context.Context, q domain.Query) (downstream.EventList, error) {
	call := f.lists.Add(1)
	if f.hook != nil {
		if err := f.hook(ctx, call); err != nil {
			return downstream.EventList{}, err
		}
	}

	list, err := f.read(q)
	if err != nil {
		return downstream.EventList{}, err
	}
	f.reads.Add(1)
	if f.afterRead != nil {
		if err := f.afterRead(ctx, call); err != nil {
			return downstream.EventList{}, err
		}
	}
	return list, nil
}

func (f *fakeStore) read(q domain.Query) (downstream.EventList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return downstream.EventList{}, f.listErr
	}

	var matched []domain.RawEvent
	for _, e := range f.events {
		if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, reconcile.MapStatus(e.String("status"))) {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].String("created_at") > matched[j].String("created_at")
	})

	total := len(matched)
	from := min((q.Page-1)*q.PageSize, total)
	to := min(from+q.PageSize, total)
	out := make([]domain.RawEvent, 0, to-from)
	for _, e := range matched[from:to] {
		cp := domain.RawEvent{}
		for k, v := range e {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return downstream.EventList{Events: out, Total: total, Shape: "data.events"}, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	f.muts.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spans = append(f.spans, trace.SpanContextFromContext(ctx))
	if f.mutErr != nil {
		return f.mutErr
	}
	for _, e := range f.events {
		if e.String("id") == id {
			e["status"] = string(status)
			return nil
		}
	}
	return downstream.ErrNotFound
}

func (f *fakeStore) UpdateEvent(ctx context.Context, id string, body domain.EventUpdate) error {
	f.muts.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spans = append(f.spans, trace.SpanContextFromContext(ctx))
	if f.mutErr != nil {
		return f.mutErr
	}
	for _, e := range f.events {
		if e.String("id") == id {
			e["title"] = body.Title
			e["start_time"] = body.StartTime
			return nil
		}
	}
	return downstream.ErrNotFound
}

func (f *fakeStore) DeleteEvent(ctx context.Context, id string) error {
	f.muts.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spans = append(f.spans, trace.SpanContextFromContext(ctx))
	if f.mutErr != nil {
		return f.mutErr
	}
	n := len(f.events)
	f.events = slices.DeleteFunc(f.events, func(e domain.RawEvent) bool { return e.String("id") == id })
	if len(f.events) == n {
		return downstream.ErrNotFound
	}
	return nil
}

// fixture: 12 pending events created one minute apart, plus two active and
// one rejected.
func fixture(base time.Time) []domain.RawEvent {
	var out []domain.RawEvent
	for i := 1; i <= 12; i++ {
		out = append(out, domain.RawEvent{
			"id":           fmt.Sprintf("p%02d", i),
			"title":        fmt.Sprintf("Pending %d", i),
			"status":       "PENDING",
			"event_date":   "2024-01-16",
			"start_time":   "10:00",
			"created_at":   base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
			"participants": i,
		})
	}
	out = append(out,
		domain.RawEvent{"id": "a1", "title": "Active 1", "status": "ACTIVE", "event_date": "2024-01-15", "start_time": "18:00", "created_at": base.Format(time.RFC3339)},
		domain.RawEvent{"id": "a2", "title": "Active 2", "status": "ACTIVE", "event_date": "2024-01-20", "start_time": "09:00", "created_at": base.Format(time.RFC3339)},
		domain.RawEvent{"id": "r1", "title": "Rejected", "status": "CANCELLED", "event_date": "2024-01-10", "start_time": "09:00", "created_at": base.Format(time.RFC3339)},
	)
	return out
}

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n notify.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
	return nil
}

func (r *recordingNotifier) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Kind, len(r.got))
	for i, n := range r.got {
		out[i] = n.Kind
	}
	return out
}

func (f *fakeStore) mutationSpans() []trace.SpanContext {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.spans)
}

// gated blocks every list call until release is closed.
func gated(release <-chan struct{}) func(context.Context, int32) error {
	return func(ctx context.Context, _ int32) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
