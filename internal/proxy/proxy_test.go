package proxy_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/proxy"
	"github.com/baechuer/real-time-ressys/admin-bff/middleware"
)

type seen struct {
	path, host, reqID, userID, auth, query string
}

func upstream(t *testing.T) (*httptest.Server, chan seen) {
	ch := make(chan seen, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ch <- seen{
			path:   r.URL.Path,
			host:   r.Host,
			reqID:  r.Header.Get(middleware.HeaderXRequestID),
			userID: r.Header.Get(proxy.HeaderUserID),
			auth:   r.Header.Get("Authorization"),
			query:  r.URL.RawQuery,
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[]}`)
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

func receive(t *testing.T, ch chan seen) seen {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(time.Second):
		t.Fatal("upstream not called")
		return seen{}
	}
}

func TestProxy_PathRewriteAndHeaders(t *testing.T) {
	srv, ch := upstream(t)

	p, err := proxy.New(srv.URL, "/api/admin/users", "/admin/v1/users")
	require.NoError(t, err)

	uid := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "http://bff/api/admin/users/42?page=2", nil)
	req.Header.Set("Authorization", "Bearer tok")
	req.Header.Set(proxy.HeaderUserID, "spoofed")
	ctx := middleware.SetRequestIDForTest(req.Context(), "req-1")
	ctx = middleware.SetUserForTest(ctx, uid, "admin")
	rec := httptest.NewRecorder()

	p.ServeHTTP(rec, req.WithContext(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	got := receive(t, ch)
	assert.Equal(t, "/admin/v1/users/42", got.path)
	assert.Equal(t, "page=2", got.query)
	assert.Equal(t, srv.Listener.Addr().String(), got.host)
	assert.Equal(t, "req-1", got.reqID)
	assert.Equal(t, uid.String(), got.userID)
	assert.Equal(t, "Bearer tok", got.auth)
}

func TestProxy_UpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	p, err := proxy.New(target, "/api/admin/news", "/admin/v1/news")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "http://bff/api/admin/news", nil)
	req = req.WithContext(middleware.SetRequestIDForTest(context.Background(), "req-9"))
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"upstream_unavailable","message":"admin service unreachable","request_id":"req-9"}}`, rec.Body.String())
}

func TestProxy_InvalidTarget(t *testing.T) {
	_, err := proxy.New("admin-service:8080", "/api/admin/users", "/admin/v1/users")
	assert.Error(t, err)
}

func TestRegister_MountsEveryResource(t *testing.T) {
	srv, ch := upstream(t)

	r := chi.NewRouter()
	r.Route("/api/admin", func(r chi.Router) {
		require.NoError(t, proxy.Register(r, srv.URL, "/admin/v1"))
	})

	for _, res := range proxy.AdminResources {
		for _, path := range []string{"/api/admin/" + res, "/api/admin/" + res + "/7/details"} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code, path)
			got := receive(t, ch)
			assert.Equal(t, "/admin/v1"+path[len("/api/admin"):], got.path)
		}
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
