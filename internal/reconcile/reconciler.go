package reconcile

import (
	"strings"
	"time"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
)

// Reconciler turns backend events into dashboard events: it folds statuses,
// accepts every field naming the backend has used, and renders times in the
// display location.
type Reconciler struct {
	loc   *time.Location
	clock domain.Clock
}

func New(loc *time.Location, clock domain.Clock) *Reconciler {
	if loc == nil {
		loc = DefaultLocation
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Reconciler{loc: loc, clock: clock}
}

func (r *Reconciler) Location() *time.Location { return r.loc }

// Today is the current calendar date in the display location.
func (r *Reconciler) Today() string {
	return r.clock.Now().In(r.loc).Format(DateLayout)
}

// Normalize maps one raw backend event. It never fails: missing fields stay empty.
func (r *Reconciler) Normalize(raw domain.RawEvent) domain.Event {
	now := r.clock.Now()

	ev := domain.Event{
		ID:          raw.String("id", "_id", "event_id"),
		Title:       raw.String("title", "name"),
		Description: raw.String("description"),
		Location:    raw.String("location_name", "location", "venue"),
		Sport:       raw.String("sport_category", "sport", "category"),
		Status:      MapStatus(raw.String("status")),
		Organizer:   organizerName(raw),
		Image:       raw.String("image", "image_url", "icon"),
	}
	ev.Participants, _ = raw.Int("participants", "current_participants", "participants_count", "registered_count")
	ev.MaxParticipants, _ = raw.Int("max_participants", "maxParticipants", "capacity")

	rawDate := raw.String("event_date", "date", "start_date")
	rawStart := raw.String("start_time", "time", "startTime")
	rawEnd := raw.String("end_time", "endTime")

	start, hasStart := resolveInstant(rawStart, rawDate, now)
	if !hasStart {
		// A full timestamp in the date field still carries the start.
		if ts, ok := parseTimestamp(rawDate); ok {
			start, hasStart = ts, true
		}
	}
	if hasStart {
		ev.StartsAt = start
		ev.Time = start.In(r.loc).Format(ClockLayout)
	}
	if end, ok := resolveInstant(rawEnd, rawDate, now); ok {
		ev.EndTime = end.In(r.loc).Format(ClockLayout)
	}
	ev.Date = r.resolveDate(rawDate, start, hasStart, now)

	return ev
}

func (r *Reconciler) resolveDate(rawDate string, start time.Time, hasStart bool, now time.Time) string {
	if hasStart {
		return start.In(r.loc).Format(DateLayout)
	}
	if d, ok := parseDate(rawDate); ok {
		return d.Format(DateLayout)
	}
	return now.In(r.loc).Format(DateLayout)
}

// StartInstant is the inverse of Normalize for the start fields: a display
// date and HH:MM clock time read in the display location.
func (r *Reconciler) StartInstant(date, clock string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	d, ok := parseDate(date)
	if !ok {
		return time.Time{}, domain.ErrValidationMeta("invalid event", map[string]string{
			"date": "must be YYYY-MM-DD",
		})
	}
	h, m, s := 0, 0, 0
	if clock != "" {
		if h, m, s, ok = parseClock(clock); !ok {
			return time.Time{}, domain.ErrValidationMeta("invalid event", map[string]string{
				"time": "must be HH:MM",
			})
		}
	}
	y, mon, day := d.Date()
	return time.Date(y, mon, day, h, m, s, 0, r.loc).UTC(), nil
}

func organizerName(raw domain.RawEvent) string {
	if s := raw.String("organizer_name"); s != "" {
		return s
	}
	for _, key := range []string{"organizer", "creator", "created_by"} {
		switch v := raw[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case map[string]any:
			if s := personName(domain.RawEvent(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func personName(p domain.RawEvent) string {
	if s := p.String("name", "full_name", "fullName", "display_name"); s != "" {
		return s
	}
	first, last := p.String("first_name", "firstName"), p.String("last_name", "lastName")
	if full := strings.TrimSpace(first + " " + last); full != "" {
		return full
	}
	return p.String("username", "email")
}
