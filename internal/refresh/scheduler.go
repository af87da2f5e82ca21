// Package refresh periodically re-syncs the admin caches with the events
// backend and flags pending events that are about to start.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/events"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/metrics"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/reconcile"
	"github.com/baechuer/real-time-ressys/admin-bff/middleware"
)

const DefaultSchedule = "@every 1m"

// WatchQuery is the pending list the scheduler keeps warm.
var WatchQuery = domain.Query{
	Statuses:  []domain.Status{domain.StatusPending},
	PageSize:  domain.MaxPageSize,
	SortBy:    "start_time",
	SortOrder: domain.SortAsc,
}

type Report struct {
	Pending  int
	Expiring map[reconcile.Tier]int
	Duration time.Duration
}

type Config struct {
	// Schedule is a standard five-field cron expression or an @every descriptor.
	Schedule string
	// BearerToken, when set, is sent to the backend on refresh calls.
	BearerToken string
	Timeout     time.Duration
}

type Scheduler struct {
	cron *cron.Cron
	svc  *events.Service
	view *events.View
	cfg  Config
	log  zerolog.Logger

	// one cycle at a time, whether from cron or Trigger
	mu sync.Mutex
}

func New(svc *events.Service, cfg Config, log zerolog.Logger) (*Scheduler, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", cfg.Schedule, err)
	}

	s := &Scheduler{
		svc:  svc,
		view: svc.NewView(WatchQuery),
		cfg:  cfg,
		log:  log.With().Str("component", "refresh").Logger(),
	}
	s.cron = cron.New(
		cron.WithLogger(cronLogger{log: s.log}),
		cron.WithChain(cron.Recover(cronLogger{log: s.log})),
	)
	if _, err := s.cron.AddFunc(cfg.Schedule, s.run); err != nil {
		return nil, fmt.Errorf("schedule refresh: %w", err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Str("schedule", s.cfg.Schedule).Msg("refresh scheduler started")
}

// Stop waits for a running cycle to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	defer s.view.Close()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	if _, err := s.Trigger(ctx); err != nil {
		s.log.Warn().Err(err).Msg("refresh cycle failed")
	}
}

// Trigger runs one cycle: drop the cache, reload the watched pending list,
// re-warm the dashboard queries and report expiring events.
func (s *Scheduler) Trigger(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	if s.cfg.BearerToken != "" {
		ctx = middleware.WithBearerToken(ctx, "Bearer "+s.cfg.BearerToken)
	}

	_ = s.svc.Invalidate(ctx)

	if err := s.view.TriggerRefresh(ctx); err != nil {
		metrics.RefreshCycles.WithLabelValues("failure").Inc()
		return Report{}, err
	}
	if _, err := s.svc.Dashboard(ctx, events.FetchOptions{}); err != nil {
		metrics.RefreshCycles.WithLabelValues("failure").Inc()
		return Report{}, err
	}

	pending := s.view.PendingEvents()
	now := s.svc.Now()
	report := Report{
		Pending:  len(pending),
		Expiring: events.ExpiryCounts(pending, now),
		Duration: time.Since(start),
	}
	for tier, n := range report.Expiring {
		metrics.ExpiringPending.WithLabelValues(string(tier)).Set(float64(n))
	}
	for _, ev := range pending {
		exp := reconcile.ComputeExpiry(ev, now)
		if exp.Tier == reconcile.TierCritical || exp.Tier == reconcile.TierExpired {
			s.log.Warn().
				Str("event_id", ev.ID).
				Str("title", ev.Title).
				Str("tier", string(exp.Tier)).
				Int("minutes_until_start", exp.Minutes).
				Msg("pending event needs review")
		}
	}

	metrics.RefreshCycles.WithLabelValues("success").Inc()
	s.log.Info().
		Int("pending", report.Pending).
		Dur("duration", report.Duration).
		Msg("refresh cycle completed")
	return report, nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
