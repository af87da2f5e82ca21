package events

import (
	"context"
	"errors"
	"net/http"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/downstream"
)

const msgSessionExpired = "session expired"

// Classify converts a data-layer error into a *domain.AppError. ErrSuperseded
// and nil pass through unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, domain.ErrSuperseded) {
		return err
	}
	var ae *domain.AppError
	if errors.As(err, &ae) {
		return ae
	}

	switch {
	case errors.Is(err, downstream.ErrUnauthorized):
		return &domain.AppError{Kind: domain.KindAuth, Message: msgSessionExpired, Err: err}
	case errors.Is(err, downstream.ErrMalformedResponse):
		return &domain.AppError{Kind: domain.KindMalformed, Message: "unexpected response from events service", Err: err}
	case errors.Is(err, downstream.ErrNotFound):
		return &domain.AppError{Kind: domain.KindNotFound, Message: "event not found", Err: err}
	case errors.Is(err, context.Canceled):
		return &domain.AppError{Kind: domain.KindNetwork, Message: "request canceled", Err: err}
	case errors.Is(err, downstream.ErrTimeout):
		return &domain.AppError{Kind: domain.KindNetwork, Message: "events service timed out", Err: err}
	case errors.Is(err, downstream.ErrUnavailable):
		return &domain.AppError{Kind: domain.KindNetwork, Message: "events service unavailable", Err: err}
	}

	var se *downstream.StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusForbidden:
			return &domain.AppError{Kind: domain.KindAuth, Message: se.Message, Err: err}
		case se.StatusCode == http.StatusBadRequest || se.StatusCode == http.StatusUnprocessableEntity:
			return &domain.AppError{Kind: domain.KindValidation, Message: se.Message, Meta: map[string]string{"code": se.Code}, Err: err}
		case se.StatusCode == http.StatusConflict:
			return &domain.AppError{Kind: domain.KindInvalidState, Message: se.Message, Meta: map[string]string{"code": se.Code}, Err: err}
		default:
			return &domain.AppError{Kind: domain.KindNetwork, Message: se.Message, Meta: map[string]string{"code": se.Code}, Err: err}
		}
	}
	return &domain.AppError{Kind: domain.KindInternal, Message: "internal error", Err: err}
}

// classifyMutation keeps kinds the caller can act on and reports the rest
// as a failed mutation.
func classifyMutation(op string, err error) error {
	c := Classify(err)
	var ae *domain.AppError
	if !errors.As(c, &ae) {
		return c
	}
	switch ae.Kind {
	case domain.KindAuth, domain.KindValidation, domain.KindInvalidState, domain.KindNotFound:
		return ae
	}
	return &domain.AppError{Kind: domain.KindMutation, Message: op + " failed: " + ae.Message, Err: err}
}

// asAppError is Classify narrowed to the struct for view state.
func asAppError(err error) *domain.AppError {
	var ae *domain.AppError
	if errors.As(Classify(err), &ae) {
		return ae
	}
	return nil
}
