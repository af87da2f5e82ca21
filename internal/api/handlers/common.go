package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/downstream"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/events"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/logger"
	"github.com/baechuer/real-time-ressys/admin-bff/middleware"
)

func sendError(w http.ResponseWriter, r *http.Request, code string, message string, status int) {
	sendErrorMeta(w, r, code, message, nil, status)
}

func sendErrorMeta(w http.ResponseWriter, r *http.Request, code, message string, meta map[string]string, status int) {
	resp := domain.APIError{}
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Meta = meta
	resp.Error.RequestID = middleware.GetRequestID(r.Context())

	render.Status(r, status)
	render.JSON(w, r, resp)
}

// handleError maps a data-layer error onto the HTTP error envelope.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *domain.AppError
	if !errors.As(events.Classify(err), &ae) {
		sendError(w, r, "internal_error", "internal error", http.StatusInternalServerError)
		return
	}

	switch ae.Kind {
	case domain.KindValidation:
		sendErrorMeta(w, r, "validation_failed", ae.Message, ae.Meta, http.StatusBadRequest)
	case domain.KindInvalidState:
		sendErrorMeta(w, r, "invalid_state", ae.Message, ae.Meta, http.StatusConflict)
	case domain.KindNotFound:
		sendError(w, r, "resource_not_found", ae.Message, http.StatusNotFound)
	case domain.KindAuth:
		if errors.Is(err, downstream.ErrUnauthorized) {
			sendError(w, r, "session_expired", ae.Message, http.StatusUnauthorized)
			return
		}
		sendError(w, r, "forbidden", ae.Message, http.StatusForbidden)
	case domain.KindNetwork:
		if errors.Is(err, downstream.ErrTimeout) {
			sendError(w, r, "upstream_timeout", ae.Message, http.StatusGatewayTimeout)
			return
		}
		sendError(w, r, "upstream_unavailable", ae.Message, http.StatusBadGateway)
	case domain.KindMalformed:
		sendError(w, r, "bad_upstream_response", ae.Message, http.StatusBadGateway)
	case domain.KindMutation:
		sendError(w, r, "mutation_failed", ae.Message, http.StatusBadGateway)
	default:
		logger.Ctx(r.Context()).Error().Err(err).Msg("unhandled error")
		sendError(w, r, "internal_error", "internal error", http.StatusInternalServerError)
	}
}
