// Package events is the admin data layer: cached, de-duplicated reads of the
// events backend and the mutations that invalidate them.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/cache"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/downstream"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/guard"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/logger"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/metrics"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/notify"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/reconcile"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/tracing"
)

// Store is the remote events backend.
type Store interface {
	ListEvents(ctx context.Context, q domain.Query) (downstream.EventList, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	UpdateEvent(ctx context.Context, id string, body domain.EventUpdate) error
	DeleteEvent(ctx context.Context, id string) error
}

type FetchOptions struct {
	// Force skips the cache lookup and the in-flight de-duplication.
	Force bool
}

type Options struct {
	Cache      cache.Cache
	Reconciler *reconcile.Reconciler
	Notifier   notify.Notifier
	Guard      *guard.Guard
	Clock      domain.Clock
}

type Service struct {
	store    Store
	cache    cache.Cache
	rec      *reconcile.Reconciler
	notifier notify.Notifier
	guard    *guard.Guard
	clock    domain.Clock

	flight singleflight.Group

	// seq holds the latest dispatched request number per query key and epoch
	// counts invalidations. commitMu makes the freshness check and the cache
	// write one step.
	seqMu    sync.Mutex
	seq      map[string]uint64
	epoch    uint64
	commitMu sync.Mutex
}

func NewService(store Store, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = domain.SystemClock{}
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewMemory(cache.DefaultTTL, opts.Clock)
	}
	if opts.Reconciler == nil {
		opts.Reconciler = reconcile.New(reconcile.DefaultLocation, opts.Clock)
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Guard == nil {
		opts.Guard = guard.New()
	}
	return &Service{
		store:    store,
		cache:    opts.Cache,
		rec:      opts.Reconciler,
		notifier: opts.Notifier,
		guard:    opts.Guard,
		clock:    opts.Clock,
		seq:      make(map[string]uint64),
	}
}

func (s *Service) Reconciler() *reconcile.Reconciler { return s.rec }
func (s *Service) Now() time.Time                    { return s.clock.Now() }

type loadResult struct {
	entry      cache.Entry
	superseded bool
}

// Fetch returns one decorated page for q. A cached entry is served while
// fresh unless opts.Force is set; concurrent misses for the same key share
// one backend call.
//
// When a newer request for the same key was dispatched while this one was
// in flight, the page is still returned but not cached, and the error is
// domain.ErrSuperseded.
func (s *Service) Fetch(ctx context.Context, q domain.Query, opts FetchOptions) (domain.Page, error) {
	q, err := q.Normalize()
	if err != nil {
		return domain.Page{}, err
	}
	key := q.Key()

	if !opts.Force {
		if page, ok := s.cached(ctx, key); ok {
			return page, nil
		}
	}

	var res loadResult
	if opts.Force {
		res, err = s.load(ctx, q, key)
	} else {
		res, err = s.shared(ctx, q, key)
	}
	if err != nil {
		return domain.Page{}, Classify(err)
	}

	page := s.toPage(res.entry, false)
	if res.superseded {
		return page, domain.ErrSuperseded
	}
	return page, nil
}

// Peek serves q from the cache only.
func (s *Service) Peek(ctx context.Context, q domain.Query) (domain.Page, bool) {
	q, err := q.Normalize()
	if err != nil {
		return domain.Page{}, false
	}
	return s.cached(ctx, q.Key())
}

func (s *Service) cached(ctx context.Context, key string) (domain.Page, bool) {
	entry, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("cache_key", key).Msg("cache read failed")
		return domain.Page{}, false
	}
	if !ok {
		return domain.Page{}, false
	}
	return s.toPage(entry, true), true
}

func (s *Service) shared(ctx context.Context, q domain.Query, key string) (loadResult, error) {
	// The shared call outlives any one caller; downstream timeouts still apply.
	ch := s.flight.DoChan(key, func() (any, error) {
		return s.load(context.WithoutCancel(ctx), q, key)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return loadResult{}, r.Err
		}
		return r.Val.(loadResult), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return loadResult{}, downstream.ErrTimeout
		}
		return loadResult{}, fmt.Errorf("fetch %s: %w", key, ctx.Err())
	}
}

func (s *Service) load(ctx context.Context, q domain.Query, key string) (res loadResult, err error) {
	seq, epoch := s.dispatch(key)

	ctx, span := tracing.StartSpan(ctx, "events.load")
	span.SetAttributes(attribute.String("events.query", key), attribute.Int64("events.seq", int64(seq)))
	defer func() {
		span.SetAttributes(attribute.Bool("events.superseded", res.superseded))
		tracing.End(span, err)
	}()

	list, err := s.store.ListEvents(ctx, q)
	if err != nil {
		return loadResult{}, err
	}

	events := make([]domain.Event, 0, len(list.Events))
	for _, raw := range list.Events {
		events = append(events, s.rec.Normalize(raw))
	}
	entry := cache.Entry{
		Events:     events,
		TotalCount: list.Total,
		Timestamp:  s.clock.Now(),
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if !s.isLatest(key, seq, epoch) {
		metrics.SupersededResponses.Inc()
		logger.Ctx(ctx).Debug().Str("cache_key", key).Uint64("seq", seq).Msg("discarding superseded response")
		return loadResult{entry: entry, superseded: true}, nil
	}
	if err := s.cache.Put(ctx, key, entry); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("cache_key", key).Msg("cache write failed")
	}
	return loadResult{entry: entry}, nil
}

func (s *Service) dispatch(key string) (seq, epoch uint64) {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.seq[key]++
	return s.seq[key], s.epoch
}

// isLatest reports whether no newer request for key was dispatched and no
// invalidation happened since this one started.
func (s *Service) isLatest(key string, seq, epoch uint64) bool {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	return s.seq[key] == seq && s.epoch == epoch
}

func (s *Service) toPage(e cache.Entry, fromCache bool) domain.Page {
	return domain.Page{
		Events:     reconcile.DecorateAll(e.Events, s.clock.Now()),
		TotalCount: e.TotalCount,
		FetchedAt:  e.Timestamp,
		FromCache:  fromCache,
	}
}

// Invalidate drops every cached page. Loads already in flight lose their
// right to commit and later fetches do not join them. Failures are logged,
// not returned to mutation callers: the mutation itself already succeeded.
func (s *Service) Invalidate(ctx context.Context) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.seqMu.Lock()
	s.epoch++
	for key := range s.seq {
		s.flight.Forget(key)
	}
	s.seqMu.Unlock()

	if err := s.cache.InvalidateAll(ctx); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("cache invalidation failed")
		return err
	}
	return nil
}

// UpdateStatus moves an event to another status on the backend.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ErrValidation("event id is required")
	}
	status = reconcile.MapStatus(string(status))
	if !status.Canonical() {
		return domain.ErrValidationMeta("invalid status", map[string]string{
			"status": "must be one of: PENDING, ACTIVE, REJECTED, COMPLETED",
		})
	}

	return s.mutate(ctx, "update_status", id, notify.KindStatusUpdated, status, func(ctx context.Context) error {
		return s.store.UpdateStatus(ctx, id, status)
	})
}

// UpdateEvent sends an edited event back. Date and Time are read in the
// display location and sent as a UTC timestamp.
func (s *Service) UpdateEvent(ctx context.Context, ev domain.Event) error {
	body, err := s.updatePayload(ev)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(ev.ID)
	return s.mutate(ctx, "update", id, notify.KindUpdated, "", func(ctx context.Context) error {
		return s.store.UpdateEvent(ctx, id, body)
	})
}

func (s *Service) updatePayload(ev domain.Event) (domain.EventUpdate, error) {
	if strings.TrimSpace(ev.ID) == "" {
		return domain.EventUpdate{}, domain.ErrValidation("event id is required")
	}
	start, err := s.rec.StartInstant(ev.Date, ev.Time)
	if err != nil {
		return domain.EventUpdate{}, err
	}
	iso := start.Format(time.RFC3339)
	return domain.EventUpdate{
		Title:           ev.Title,
		Description:     ev.Description,
		EventDate:       iso,
		StartTime:       iso,
		LocationName:    ev.Location,
		SportCategory:   ev.Sport,
		MaxParticipants: ev.MaxParticipants,
	}, nil
}

func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ErrValidation("event id is required")
	}
	return s.mutate(ctx, "delete", id, notify.KindDeleted, "", func(ctx context.Context) error {
		return s.store.DeleteEvent(ctx, id)
	})
}

// mutate runs one backend write inside an "events.<op>" span so the outgoing
// request is a child of it.
func (s *Service) mutate(ctx context.Context, op, id string, kind notify.Kind, status domain.Status, call func(context.Context) error) (err error) {
	ctx, span := tracing.StartSpan(ctx, "events."+op)
	span.SetAttributes(attribute.String("event.id", id))
	defer func() { tracing.End(span, err) }()

	return s.afterMutation(ctx, op, id, kind, status, call(ctx))
}

func (s *Service) afterMutation(ctx context.Context, op, id string, kind notify.Kind, status domain.Status, err error) error {
	metrics.Mutations.WithLabelValues(op, metrics.Outcome(err)).Inc()
	log := logger.Ctx(ctx)

	if err != nil {
		cerr := classifyMutation(op, err)
		log.Warn().Err(err).Str("op", op).Str("event_id", id).Msg("event mutation failed")

		n := notify.New(notify.KindMutationFailed, op, id, s.clock.Now())
		n.Status = status
		n.ErrorKind = domain.KindOf(cerr)
		n.Message = cerr.Error()
		s.publish(ctx, n)
		return cerr
	}

	_ = s.Invalidate(ctx)

	n := notify.New(kind, op, id, s.clock.Now())
	n.Status = status
	s.publish(ctx, n)

	log.Info().Str("op", op).Str("event_id", id).Str("status", string(status)).Msg("event mutation applied")
	return nil
}

func (s *Service) publish(ctx context.Context, n notify.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		zlog.Warn().Err(err).Str("kind", string(n.Kind)).Str("event_id", n.EventID).Msg("notification failed")
	}
}

// IsSuperseded reports whether err only marks a discarded cache write.
func IsSuperseded(err error) bool {
	return errors.Is(err, domain.ErrSuperseded)
}
