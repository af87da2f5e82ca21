package reconcile

import (
	"fmt"
	"math"
	"time"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
)

type Tier string

const (
	TierNone     Tier = ""
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
	TierExpired  Tier = "expired"
)

const (
	CriticalWindow = 5
	WarningWindow  = 30
)

// Expiry describes how close a pending event is to its start.
type Expiry struct {
	Tier    Tier
	Minutes int
	Label   string
}

func (e Expiry) Soon() bool { return e.Tier != TierNone }

// ComputeExpiry only applies to pending events with a known start.
func ComputeExpiry(ev domain.Event, now time.Time) Expiry {
	if ev.Status != domain.StatusPending || ev.StartsAt.IsZero() {
		return Expiry{}
	}
	minutes := int(math.Ceil(ev.StartsAt.Sub(now).Minutes()))
	switch {
	case minutes <= 0:
		return Expiry{Tier: TierExpired, Minutes: minutes, Label: "expired now"}
	case minutes <= CriticalWindow:
		return Expiry{Tier: TierCritical, Minutes: minutes, Label: fmt.Sprintf("%d minutes left", minutes)}
	case minutes <= WarningWindow:
		return Expiry{Tier: TierWarning, Minutes: minutes, Label: fmt.Sprintf("%d minutes left", minutes)}
	default:
		return Expiry{Minutes: minutes}
	}
}

// TimedOut guesses whether a rejected event was rejected by the start-time
// timeout rather than by a moderator.
func TimedOut(ev domain.Event, now time.Time) bool {
	return ev.Status == domain.StatusRejected && !ev.StartsAt.IsZero() && !ev.StartsAt.After(now)
}

// Decorate fills the presentation fields for the given instant.
func Decorate(ev domain.Event, now time.Time) domain.Event {
	ev = ev.ClearDerived()
	exp := ComputeExpiry(ev, now)
	if exp.Soon() {
		ev.IsExpiringSoon = true
		ev.TimeUntilStart = exp.Label
		ev.ExpiryTier = string(exp.Tier)
	}
	ev.TimedOut = TimedOut(ev, now)
	return ev
}

// DecorateAll returns a decorated copy of events.
func DecorateAll(events []domain.Event, now time.Time) []domain.Event {
	out := make([]domain.Event, len(events))
	for i, ev := range events {
		out[i] = Decorate(ev, now)
	}
	return out
}
