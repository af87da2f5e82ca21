package downstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/logger"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/metrics"
	"github.com/baechuer/real-time-ressys/admin-bff/middleware"
)

// ClientConfig holds configuration for the HTTP client wrapper
type ClientConfig struct {
	// ReadTimeout is used for GET requests
	ReadTimeout time.Duration
	// WriteTimeout is used for POST, PUT, PATCH, DELETE requests
	WriteTimeout time.Duration
	// Transport defaults to a tracing transport over http.DefaultTransport.
	Transport http.RoundTripper
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Client wraps every call to the events backend:
// 1. Injects X-Request-ID and the caller's bearer token from context
// 2. Enforces timeouts based on HTTP method (read vs write)
// 3. Maps transport errors to ErrTimeout / ErrUnavailable
// 4. Logs and records metrics with correlation ID
type Client struct {
	baseClient *http.Client
	config     ClientConfig
}

func NewClient(config ClientConfig) *Client {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultClientConfig().ReadTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultClientConfig().WriteTimeout
	}
	transport := config.Transport
	if transport == nil {
		transport = &middleware.TracingTransport{Base: http.DefaultTransport}
	}
	return &Client{
		// No global timeout - we set per-request timeouts
		baseClient: &http.Client{Transport: transport},
		config:     config,
	}
}

// Do executes req. The timeout stays armed until the response body is closed.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	reqID := middleware.GetRequestID(ctx)
	if reqID != "" {
		req.Header.Set(middleware.HeaderXRequestID, reqID)
	}
	if token := middleware.GetBearerToken(ctx); token != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", token)
	}

	timeout := c.config.ReadTimeout
	if isWriteMethod(req.Method) {
		timeout = c.config.WriteTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	req = req.WithContext(ctx)

	log := logger.Log.With().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", reqID).
		Logger()

	start := time.Now()
	resp, err := c.baseClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		cancel()
		metrics.ObserveDownstream(req.Method, 0, err, duration)
		log.Warn().
			Err(err).
			Dur("duration", duration).
			Msg("downstream_request_failed")
		return nil, mapError(err)
	}

	metrics.ObserveDownstream(req.Method, resp.StatusCode, nil, duration)
	log.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("downstream_request_completed")

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// mapError converts low-level errors to domain errors
func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	// The caller gave up; keep context.Canceled visible.
	if errors.Is(err, context.Canceled) {
		return err
	}
	// Connection refused, DNS errors, etc.
	return ErrUnavailable
}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// DoWithBody is a convenience method for requests with a body
func (c *Client) DoWithBody(ctx context.Context, method, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.Do(ctx, req)
}

func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	return c.DoWithBody(ctx, http.MethodGet, url, nil, headers)
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
