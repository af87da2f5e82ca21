package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/downstream"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/events"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/reconcile"
	"github.com/baechuer/real-time-ressys/admin-bff/middleware"
)

var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

type mockEventService struct {
	mock.Mock
}

func (m *mockEventService) Fetch(ctx context.Context, q domain.Query, opts events.FetchOptions) (domain.Page, error) {
	args := m.Called(ctx, q, opts)
	return args.Get(0).(domain.Page), args.Error(1)
}

func (m *mockEventService) Dashboard(ctx context.Context, opts events.FetchOptions) (events.Dashboard, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(events.Dashboard), args.Error(1)
}

func (m *mockEventService) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockEventService) UpdateEvent(ctx context.Context, ev domain.Event) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *mockEventService) DeleteEvent(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockEventService) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockEventService) Now() time.Time { return testNow }

func newTestRouter(svc EventService, role string) http.Handler {
	h := NewEventHandler(svc, 10)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.SetUserForTest(req.Context(), uuid.New(), role)
			ctx = middleware.SetRequestIDForTest(ctx, "req-1")
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Get("/events", h.ListEvents)
	r.Get("/events/dashboard", h.Dashboard)
	r.Post("/events/refresh", h.Refresh)
	r.Patch("/events/{id}/status", h.UpdateStatus)
	r.Put("/events/{id}", h.UpdateEvent)
	r.Delete("/events/{id}", h.DeleteEvent)
	return r
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) domain.APIError {
	t.Helper()
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	return apiErr
}

func pendingEvent(id string, startsIn time.Duration) domain.Event {
	return domain.Event{ID: id, Title: "Match " + id, Status: domain.StatusPending, StartsAt: testNow.Add(startsIn)}
}

func TestListEvents_QueryParsingAndActions(t *testing.T) {
	svc := new(mockEventService)
	want := domain.Query{
		Statuses:  []domain.Status{domain.StatusPending, domain.StatusActive},
		Page:      2,
		PageSize:  5,
		SortBy:    "start_time",
		SortOrder: domain.SortAsc,
	}
	page := domain.Page{
		Events:     []domain.Event{pendingEvent("e1", time.Hour), pendingEvent("e2", -time.Minute)},
		TotalCount: 7,
		FetchedAt:  testNow,
	}
	svc.On("Fetch", mock.Anything, want, events.FetchOptions{}).Return(page, nil).Once()

	rec := serve(t, newTestRouter(svc, "admin"), http.MethodGet,
		"/events?status=pending&status=active&page=2&limit=5&sort_by=start_time&sort_order=asc", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.TotalCount)
	require.Len(t, resp.Events, 2)
	assert.True(t, resp.Events[0].Actions.CanApprove)
	assert.False(t, resp.Events[1].Actions.CanApprove)
	assert.Equal(t, "start_time_passed", resp.Events[1].Actions.Reason)
	assert.True(t, resp.Events[0].Actions.CanDelete)
	svc.AssertExpectations(t)
}

func TestListEvents_ViewAndRefresh(t *testing.T) {
	svc := new(mockEventService)
	want := domain.Query{Page: 1, PageSize: 10, DateFilter: domain.DateFilterToday}
	svc.On("Fetch", mock.Anything, want, events.FetchOptions{Force: true}).Return(domain.Page{}, nil).Once()

	rec := serve(t, newTestRouter(svc, "moderator"), http.MethodGet, "/events?view=today&refresh=true", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestListEvents_SupersededStillServed(t *testing.T) {
	svc := new(mockEventService)
	svc.On("Fetch", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Page{Events: []domain.Event{pendingEvent("e1", time.Hour)}, TotalCount: 1}, domain.ErrSuperseded)

	rec := serve(t, newTestRouter(svc, "admin"), http.MethodGet, "/events", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Events, 1)
}

func TestListEvents_BadParams(t *testing.T) {
	svc := new(mockEventService)
	router := newTestRouter(svc, "admin")

	for _, target := range []string{"/events?page=0", "/events?limit=abc", "/events?view=bogus"} {
		rec := serve(t, router, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, "validation_failed", decodeError(t, rec).Error.Code, target)
	}
	svc.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
}

func TestListEvents_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"session expired", downstream.ErrUnauthorized, http.StatusUnauthorized, "session_expired"},
		{"timeout", downstream.ErrTimeout, http.StatusGatewayTimeout, "upstream_timeout"},
		{"unavailable", downstream.ErrUnavailable, http.StatusBadGateway, "upstream_unavailable"},
		{"malformed", downstream.ErrMalformedResponse, http.StatusBadGateway, "bad_upstream_response"},
		{"query limit", domain.ErrValidationMeta("invalid query param", map[string]string{"limit": "must be <= 100"}), http.StatusBadRequest, "validation_failed"},
		{"forbidden", &downstream.StatusError{StatusCode: http.StatusForbidden, Code: "forbidden", Message: "nope"}, http.StatusForbidden, "forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockEventService)
			svc.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(domain.Page{}, events.Classify(tt.err))

			rec := serve(t, newTestRouter(svc, "admin"), http.MethodGet, "/events", "")
			assert.Equal(t, tt.status, rec.Code)
			apiErr := decodeError(t, rec)
			assert.Equal(t, tt.code, apiErr.Error.Code)
			assert.Equal(t, "req-1", apiErr.Error.RequestID)
		})
	}
}

func TestDashboard(t *testing.T) {
	svc := new(mockEventService)
	d := events.Dashboard{
		Pending:     events.Section{Events: []domain.Event{pendingEvent("p1", 3*time.Minute)}, TotalCount: 1},
		Expiring:    map[reconcile.Tier]int{reconcile.TierCritical: 1},
		GeneratedAt: testNow,
	}
	svc.On("Dashboard", mock.Anything, events.FetchOptions{}).Return(d, nil).Once()

	rec := serve(t, newTestRouter(svc, "admin"), http.MethodGet, "/events/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Pending.TotalCount)
	assert.Equal(t, 1, resp.Expiring[reconcile.TierCritical])
	require.Len(t, resp.Pending.Events, 1)
	assert.True(t, resp.Pending.Events[0].Actions.CanReject)
	svc.AssertExpectations(t)
}

func TestUpdateStatus(t *testing.T) {
	svc := new(mockEventService)
	svc.On("UpdateStatus", mock.Anything, "e1", domain.StatusActive).Return(nil).Once()

	rec := serve(t, newTestRouter(svc, "admin"), http.MethodPatch, "/events/e1/status", `{"status":"active"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"e1","status":"ACTIVE"}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestUpdateStatus_Invalid(t *testing.T) {
	svc := new(mockEventService)
	router := newTestRouter(svc, "admin")

	rec := serve(t, router, http.MethodPatch, "/events/e1/status", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, router, http.MethodPatch, "/events/e1/status", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "is required", decodeError(t, rec).Error.Meta["status"])

	svc.On("UpdateStatus", mock.Anything, "e1", domain.StatusCompleted).
		Return(domain.ErrInvalidState("cannot move REJECTED to COMPLETED")).Once()
	rec = serve(t, router, http.MethodPatch, "/events/e1/status", `{"status":"completed"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", decodeError(t, rec).Error.Code)
}

func TestUpdateEvent(t *testing.T) {
	svc := new(mockEventService)
	want := domain.Event{
		ID:              "e1",
		Title:           "Derby",
		Date:            "2024-01-20",
		Time:            "17:00",
		Location:        "Arena",
		Sport:           "football",
		MaxParticipants: 22,
	}
	svc.On("UpdateEvent", mock.Anything, want).Return(nil).Once()

	body := `{"title":" Derby ","date":"2024-01-20","time":"17:00","location":"Arena","sport":"football","maxParticipants":22}`
	rec := serve(t, newTestRouter(svc, "admin"), http.MethodPut, "/events/e1", body)
	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestUpdateEvent_ValidationMeta(t *testing.T) {
	svc := new(mockEventService)

	rec := serve(t, newTestRouter(svc, "admin"), http.MethodPut, "/events/e1",
		`{"title":"","date":"20/01/2024","time":"5pm","location":"Arena","maxParticipants":-1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	meta := decodeError(t, rec).Error.Meta
	assert.Equal(t, "is required", meta["title"])
	assert.Equal(t, "must match 2006-01-02", meta["date"])
	assert.Equal(t, "must match 15:04", meta["time"])
	assert.Equal(t, "must be >= 0", meta["maxParticipants"])
	svc.AssertNotCalled(t, "UpdateEvent", mock.Anything, mock.Anything)
}

func TestDeleteEvent(t *testing.T) {
	svc := new(mockEventService)
	svc.On("DeleteEvent", mock.Anything, "e1").Return(nil).Once()
	svc.On("DeleteEvent", mock.Anything, "gone").Return(events.Classify(downstream.ErrNotFound)).Once()
	router := newTestRouter(svc, "admin")

	rec := serve(t, router, http.MethodDelete, "/events/e1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, router, http.MethodDelete, "/events/gone", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	svc.AssertExpectations(t)
}

func TestMutationFailureIsBadGateway(t *testing.T) {
	svc := new(mockEventService)
	svc.On("DeleteEvent", mock.Anything, "e1").
		Return(&domain.AppError{Kind: domain.KindMutation, Message: "delete failed: events service unavailable"}).Once()

	rec := serve(t, newTestRouter(svc, "admin"), http.MethodDelete, "/events/e1", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "mutation_failed", decodeError(t, rec).Error.Code)
}

func TestRefresh(t *testing.T) {
	svc := new(mockEventService)
	svc.On("Invalidate", mock.Anything).Return(nil).Once()
	svc.On("Invalidate", mock.Anything).Return(assert.AnError).Once()
	router := newTestRouter(svc, "admin")

	assert.Equal(t, http.StatusNoContent, serve(t, router, http.MethodPost, "/events/refresh", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, router, http.MethodPost, "/events/refresh", "").Code)
}
