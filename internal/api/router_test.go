package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/api"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/config"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/downstream"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/events"
)

const secret = "router-test-secret"

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":  uuid.NewString(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + tok
}

type stack struct {
	router     http.Handler
	listCalls  atomic.Int32
	lastAuth   atomic.Value
	adminPaths chan string
}

func newStack(t *testing.T, rdb *redis.Client, mutate func(*config.Config)) *stack {
	t.Helper()
	s := &stack{adminPaths: make(chan string, 4)}

	eventsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.lastAuth.Store(r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/events":
			s.listCalls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"events":[{"id":"e1","title":"Derby","status":"PENDING","start_time":"2030-01-01T10:00:00Z"}],"total":1}}`))
		case r.Method == http.MethodPatch && r.URL.Path == "/events/e1/status":
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/events/expired":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(eventsSrv.Close)

	adminSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.adminPaths <- r.URL.Path
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	t.Cleanup(adminSrv.Close)

	cfg := &config.Config{
		EventServiceURL: eventsSrv.URL,
		AdminServiceURL: adminSrv.URL,
		JWTSecret:       secret,
		DefaultPageSize: 10,
		RLEnabled:       true,
		RLLimit:         100,
		RLWindow:        time.Minute,
	}
	if mutate != nil {
		mutate(cfg)
	}

	client := downstream.NewEventClient(cfg.EventServiceURL, downstream.NewClient(downstream.ClientConfig{Transport: http.DefaultTransport}))
	svc := events.NewService(client, events.Options{})

	router, err := api.NewRouter(api.Deps{Config: cfg, Events: svc, Redis: rdb})
	require.NoError(t, err)
	s.router = router
	return s
}

func (s *stack) do(method, target, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Integration(t *testing.T) {
	s := newStack(t, nil, nil)
	admin := bearer(t, "admin")

	t.Run("Healthz", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/healthz", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
		assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	})

	t.Run("Metrics", func(t *testing.T) {
		w := s.do(http.MethodGet, "/metrics", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "admin_bff_http_requests_total")
	})

	t.Run("Anonymous is rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/admin/events", "", "").Code)
	})

	t.Run("Non-admin is forbidden", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/admin/events", bearer(t, "user"), "").Code)
	})

	t.Run("List is cached and forwards the token", func(t *testing.T) {
		before := s.listCalls.Load()

		w := s.do(http.MethodGet, "/api/admin/events?status=PENDING", admin, "")
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Events []struct {
				ID      string `json:"id"`
				Actions struct {
					CanApprove bool `json:"can_approve"`
				} `json:"actions"`
			} `json:"events"`
			TotalCount int  `json:"totalCount"`
			FromCache  bool `json:"fromCache"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Events, 1)
		assert.True(t, resp.Events[0].Actions.CanApprove)
		assert.False(t, resp.FromCache)
		assert.Equal(t, admin, s.lastAuth.Load())

		w = s.do(http.MethodGet, "/api/admin/events?status=pending", admin, "")
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.FromCache)
		assert.Equal(t, before+1, s.listCalls.Load())
	})

	t.Run("Mutation invalidates", func(t *testing.T) {
		w := s.do(http.MethodPatch, "/api/admin/events/e1/status", admin, `{"status":"ACTIVE"}`)
		require.Equal(t, http.StatusOK, w.Code)

		before := s.listCalls.Load()
		w = s.do(http.MethodGet, "/api/admin/events?status=PENDING", admin, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, before+1, s.listCalls.Load())
	})

	t.Run("Backend 401 is session expired", func(t *testing.T) {
		w := s.do(http.MethodDelete, "/api/admin/events/expired", admin, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "session_expired")
	})

	t.Run("Admin resources are proxied", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/admin/reports/9", admin, "")
		assert.Equal(t, http.StatusOK, w.Code)
		select {
		case p := <-s.adminPaths:
			assert.Equal(t, "/admin/v1/reports/9", p)
		case <-time.After(time.Second):
			t.Fatal("admin service not called")
		}
	})

	t.Run("404 for unknown", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/unknown", "", "").Code)
	})
}

func TestRouter_RedisRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := newStack(t, rdb, func(c *config.Config) { c.RLLimit = 2 })
	admin := bearer(t, "admin")

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/admin/events", admin, "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/admin/events", admin, "").Code)
	w := s.do(http.MethodGet, "/api/admin/events", admin, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Another admin has their own budget.
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/admin/events", bearer(t, "moderator"), "").Code)
}

func TestRouter_InvalidAdminURL(t *testing.T) {
	cfg := &config.Config{
		EventServiceURL: "http://events:8080",
		AdminServiceURL: "admin-service",
		JWTSecret:       secret,
	}
	_, err := api.NewRouter(api.Deps{Config: cfg, Events: events.NewService(nil, events.Options{})})
	assert.Error(t, err)
}
