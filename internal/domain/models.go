package domain

import (
	"time"
)

// Event is the dashboard-facing event. Date, Time and EndTime are already
// rendered in the display timezone.
type Event struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	EndTime         string `json:"endTime"`
	Location        string `json:"location"`
	Sport           string `json:"sport"`
	Participants    int    `json:"participants"`
	MaxParticipants int    `json:"maxParticipants"`
	Status          Status `json:"status"`
	Organizer       string `json:"organizer"`
	Image           string `json:"image,omitempty"`

	// StartsAt is the resolved start instant; zero when the backend sent no start time.
	StartsAt time.Time `json:"startsAt,omitzero"`

	// Derived at read time, never cached.
	IsExpiringSoon bool   `json:"isExpiringSoon"`
	TimeUntilStart string `json:"timeUntilStart,omitempty"`
	ExpiryTier     string `json:"expiryTier,omitempty"`
	TimedOut       bool   `json:"timedOut,omitempty"`
}

// ClearDerived drops the presentation-only fields.
func (e Event) ClearDerived() Event {
	e.IsExpiringSoon = false
	e.TimeUntilStart = ""
	e.ExpiryTier = ""
	e.TimedOut = false
	return e
}

// EventUpdate is the body the backend expects on PUT /events/{id}.
type EventUpdate struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	EventDate       string `json:"event_date"`
	StartTime       string `json:"start_time"`
	LocationName    string `json:"location_name"`
	SportCategory   string `json:"sport_category"`
	MaxParticipants int    `json:"max_participants"`
}

// Page is one normalized result set for a query.
type Page struct {
	Events     []Event   `json:"events"`
	TotalCount int       `json:"totalCount"`
	FetchedAt  time.Time `json:"fetchedAt"`
	FromCache  bool      `json:"fromCache"`
}

type APIError struct {
	Error struct {
		Code      string            `json:"code"`
		Message   string            `json:"message"`
		Meta      map[string]string `json:"meta,omitempty"`
		RequestID string            `json:"request_id,omitempty"`
	} `json:"error"`
}
