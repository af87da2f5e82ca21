// Package notify reports mutation outcomes: to the log for operators and to
// RabbitMQ for other services watching the event catalogue.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
)

type Kind string

const (
	KindStatusUpdated  Kind = "event.status_updated"
	KindUpdated        Kind = "event.updated"
	KindDeleted        Kind = "event.deleted"
	KindMutationFailed Kind = "mutation_failed"
)

type Notification struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Op        string         `json:"op"`
	EventID   string         `json:"event_id"`
	Status    domain.Status  `json:"status,omitempty"`
	ErrorKind domain.ErrKind `json:"error_kind,omitempty"`
	Message   string         `json:"message,omitempty"`
	At        time.Time      `json:"at"`
}

// New stamps a notification with an id and time.
func New(kind Kind, op, eventID string, at time.Time) Notification {
	return Notification{
		ID:      uuid.NewString(),
		Kind:    kind,
		Op:      op,
		EventID: eventID,
		At:      at.UTC(),
	}
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to a zerolog logger.
type LogNotifier struct {
	Log zerolog.Logger
}

func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	ev := l.Log.Info()
	if n.Kind == KindMutationFailed {
		ev = l.Log.Warn()
	}
	ev.
		Str("notification_id", n.ID).
		Str("kind", string(n.Kind)).
		Str("op", n.Op).
		Str("event_id", n.EventID).
		Str("status", string(n.Status)).
		Str("error_kind", string(n.ErrorKind)).
		Str("message", n.Message).
		Msg("event_notification")
	return nil
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, nt := range m {
		if nt == nil {
			continue
		}
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Notify(context.Context, Notification) error { return nil }
