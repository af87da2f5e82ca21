package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
)

// ReadinessChecker checks if a dependency is ready.
type ReadinessChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HTTPReadinessChecker checks an HTTP endpoint for readiness.
type HTTPReadinessChecker struct {
	name   string
	url    string
	client *http.Client
}

func NewHTTPReadinessChecker(name, url string) *HTTPReadinessChecker {
	return &HTTPReadinessChecker{name: name, url: url, client: &http.Client{Timeout: 2 * time.Second}}
}

func (c *HTTPReadinessChecker) Name() string { return c.name }

func (c *HTTPReadinessChecker) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &CheckError{Status: resp.StatusCode}
	}
	return nil
}

type CheckError struct {
	Status int
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("unhealthy status %d", e.Status)
}

// PingChecker adapts anything with a Ping method, such as the redis cache.
type PingChecker struct {
	name string
	p    interface{ Ping(context.Context) error }
}

func NewPingChecker(name string, p interface{ Ping(context.Context) error }) *PingChecker {
	return &PingChecker{name: name, p: p}
}

func (c *PingChecker) Name() string                    { return c.name }
func (c *PingChecker) Check(ctx context.Context) error { return c.p.Ping(ctx) }

// ReadinessHandler handles /readyz and /healthz endpoints.
type ReadinessHandler struct {
	checkers []ReadinessChecker
}

func NewReadinessHandler(checkers ...ReadinessChecker) *ReadinessHandler {
	return &ReadinessHandler{checkers: checkers}
}

// Healthz is a simple liveness check (process is alive).
func (h *ReadinessHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readyResponse struct {
	Status string        `json:"status"`
	Checks []checkResult `json:"checks"`
}

// Readyz checks all dependencies and returns detailed status.
func (h *ReadinessHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	results := make([]checkResult, len(h.checkers))
	var wg sync.WaitGroup
	for i, checker := range h.checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = checkResult{Name: checker.Name(), Status: "healthy"}
			if err := checker.Check(ctx); err != nil {
				results[i].Status = "unhealthy"
				results[i].Error = err.Error()
			}
		}()
	}
	wg.Wait()

	resp := readyResponse{Status: "ready", Checks: results}
	for _, res := range results {
		if res.Status != "healthy" {
			resp.Status = "not_ready"
			render.Status(r, http.StatusServiceUnavailable)
			break
		}
	}
	render.JSON(w, r, resp)
}
