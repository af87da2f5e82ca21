package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/logger"
	"github.com/baechuer/real-time-ressys/admin-bff/middleware"
)

// AdminResources are the non-event admin sections served by the admin
// service and passed through unchanged.
var AdminResources = []string{"users", "reports", "news", "messages", "analytics"}

const HeaderUserID = "X-User-ID"

// New creates a reverse proxy that rewrites paths and propagates context headers.
// targetHost: "http://admin-service:8080"
// stripPrefix: "/api/admin/users"
// upstreamPrefix: "/admin/v1/users"
func New(targetHost, stripPrefix, upstreamPrefix string) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(targetHost)
	if err != nil {
		return nil, err
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("proxy target %q must be an absolute URL", targetHost)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	originalDirector := proxy.Director

	proxy.Director = func(req *http.Request) {
		originalDirector(req)

		req.Host = target.Host

		// /api/admin/users/42 -> /admin/v1/users/42
		if strings.HasPrefix(req.URL.Path, stripPrefix) {
			req.URL.Path = upstreamPrefix + strings.TrimPrefix(req.URL.Path, stripPrefix)
			req.URL.RawPath = ""
		}

		if reqID := middleware.GetRequestID(req.Context()); reqID != "" {
			req.Header.Set(middleware.HeaderXRequestID, reqID)
		}
		// Never trust a caller-supplied identity header.
		req.Header.Del(HeaderUserID)
		if uid := middleware.GetUserID(req.Context()); uid != uuid.Nil {
			req.Header.Set(HeaderUserID, uid.String())
		}
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		reqID := middleware.GetRequestID(r.Context())

		logger.Log.Error().
			Err(err).
			Str("target", targetHost).
			Str("path", r.URL.Path).
			Str("request_id", reqID).
			Msg("upstream_proxy_error")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"code":"upstream_unavailable","message":"admin service unreachable","request_id":"` + reqID + `"}}`))
	}

	return proxy, nil
}

// Register mounts one pass-through per admin resource on r, which is
// expected to sit at /api/admin.
func Register(r chi.Router, targetHost, upstreamPrefix string) error {
	for _, res := range AdminResources {
		p, err := New(targetHost, "/api/admin/"+res, upstreamPrefix+"/"+res)
		if err != nil {
			return err
		}
		r.Handle("/"+res, p)
		r.Handle("/"+res+"/*", p)
	}
	return nil
}
