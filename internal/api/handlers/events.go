package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/events"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/reconcile"
	"github.com/baechuer/real-time-ressys/admin-bff/middleware"
)

// EventService is the slice of events.Service the admin API needs.
type EventService interface {
	Fetch(ctx context.Context, q domain.Query, opts events.FetchOptions) (domain.Page, error)
	Dashboard(ctx context.Context, opts events.FetchOptions) (events.Dashboard, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	UpdateEvent(ctx context.Context, ev domain.Event) error
	DeleteEvent(ctx context.Context, id string) error
	Invalidate(ctx context.Context) error
	Now() time.Time
}

type EventHandler struct {
	svc             EventService
	defaultPageSize int
}

func NewEventHandler(svc EventService, defaultPageSize int) *EventHandler {
	if defaultPageSize <= 0 {
		defaultPageSize = domain.DefaultPageSize
	}
	return &EventHandler{svc: svc, defaultPageSize: defaultPageSize}
}

// EventView is an event with the moderation actions open to the caller.
type EventView struct {
	domain.Event
	Actions domain.ActionPolicy `json:"actions"`
}

type ListResponse struct {
	Events     []EventView  `json:"events"`
	TotalCount int          `json:"totalCount"`
	Query      domain.Query `json:"query"`
	FetchedAt  time.Time    `json:"fetchedAt"`
	FromCache  bool         `json:"fromCache"`
}

type SectionView struct {
	Events     []EventView `json:"events"`
	TotalCount int         `json:"totalCount"`
}

type DashboardResponse struct {
	Pending     SectionView            `json:"pending"`
	Today       SectionView            `json:"today"`
	Upcoming    SectionView            `json:"upcoming"`
	Rejected    SectionView            `json:"rejected"`
	Expiring    map[reconcile.Tier]int `json:"expiring"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type updateEventRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	Description     string `json:"description" validate:"max=5000"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string `json:"time" validate:"required,datetime=15:04"`
	Location        string `json:"location" validate:"required,max=200"`
	Sport           string `json:"sport" validate:"max=100"`
	MaxParticipants int    `json:"maxParticipants" validate:"gte=0"`
}

// ListEvents serves GET /api/admin/events.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	opts := events.FetchOptions{Force: isTrue(r.URL.Query().Get("refresh"))}

	page, err := h.svc.Fetch(r.Context(), q, opts)
	if err != nil && !events.IsSuperseded(err) {
		handleError(w, r, err)
		return
	}

	nq, _ := q.Normalize()
	render.JSON(w, r, ListResponse{
		Events:     h.withActions(r, page.Events),
		TotalCount: page.TotalCount,
		Query:      nq,
		FetchedAt:  page.FetchedAt,
		FromCache:  page.FromCache,
	})
}

// Dashboard serves GET /api/admin/events/dashboard.
func (h *EventHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context(), events.FetchOptions{Force: isTrue(r.URL.Query().Get("refresh"))})
	if err != nil {
		handleError(w, r, err)
		return
	}
	section := func(s events.Section) SectionView {
		return SectionView{Events: h.withActions(r, s.Events), TotalCount: s.TotalCount}
	}
	render.JSON(w, r, DashboardResponse{
		Pending:     section(d.Pending),
		Today:       section(d.Today),
		Upcoming:    section(d.Upcoming),
		Rejected:    section(d.Rejected),
		Expiring:    d.Expiring,
		GeneratedAt: d.GeneratedAt,
	})
}

// UpdateStatus serves PATCH /api/admin/events/{id}/status.
func (h *EventHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		sendError(w, r, "validation_failed", "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := validateRequest(req); err != nil {
		handleError(w, r, err)
		return
	}

	status := reconcile.MapStatus(req.Status)
	if err := h.svc.UpdateStatus(r.Context(), id, status); err != nil {
		handleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"id": id, "status": status})
}

// UpdateEvent serves PUT /api/admin/events/{id}.
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateEventRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		sendError(w, r, "validation_failed", "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := validateRequest(req); err != nil {
		handleError(w, r, err)
		return
	}

	ev := domain.Event{
		ID:              id,
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Date:            req.Date,
		Time:            req.Time,
		Location:        strings.TrimSpace(req.Location),
		Sport:           strings.TrimSpace(req.Sport),
		MaxParticipants: req.MaxParticipants,
	}
	if err := h.svc.UpdateEvent(r.Context(), ev); err != nil {
		handleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"id": id})
}

// DeleteEvent serves DELETE /api/admin/events/{id}.
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh serves POST /api/admin/events/refresh.
func (h *EventHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Invalidate(r.Context()); err != nil {
		sendError(w, r, "cache_unavailable", "cache invalidation failed", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) parseQuery(r *http.Request) (domain.Query, error) {
	v := r.URL.Query()
	meta := map[string]string{}

	q := domain.Query{
		Page:       parsePositive(v.Get("page"), 1, "page", meta),
		PageSize:   parsePositive(firstOf(v.Get("limit"), v.Get("page_size")), h.defaultPageSize, "limit", meta),
		SortBy:     v.Get("sort_by"),
		SortOrder:  domain.SortOrder(v.Get("sort_order")),
		DateFilter: domain.DateFilter(v.Get("date_filter")),
	}
	for _, raw := range v["status"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				q.Statuses = append(q.Statuses, reconcile.MapStatus(s))
			}
		}
	}
	if len(meta) > 0 {
		return domain.Query{}, domain.ErrValidationMeta("invalid query param", meta)
	}

	if sel := v.Get("view"); sel != "" {
		sq, err := events.SelectQuery(q, sel)
		if err != nil {
			return domain.Query{}, err
		}
		sq.Page = q.Page
		q = sq
	}
	return q, nil
}

func (h *EventHandler) withActions(r *http.Request, evs []domain.Event) []EventView {
	role := middleware.GetRole(r.Context())
	now := h.svc.Now()
	out := make([]EventView, len(evs))
	for i := range evs {
		out[i] = EventView{Event: evs[i], Actions: domain.CalculateActionPolicy(&evs[i], role, now)}
	}
	return out
}

func parsePositive(raw string, def int, field string, meta map[string]string) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		meta[field] = "must be a positive integer"
		return def
	}
	return n
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func isTrue(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}
