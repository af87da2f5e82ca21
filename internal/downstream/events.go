package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
)

// maxListBody caps how much of a list response is read.
const maxListBody = 8 << 20

// statusToBackend translates dashboard statuses to the backend vocabulary.
// Unmapped values are sent as they are.
var statusToBackend = map[domain.Status]string{
	domain.StatusPending:   "PENDING",
	domain.StatusActive:    "ACTIVE",
	domain.StatusRejected:  "REJECTED",
	domain.StatusCompleted: "COMPLETED",
}

func BackendStatus(s domain.Status) string {
	if v, ok := statusToBackend[s]; ok {
		return v
	}
	return string(s)
}

// EventClient talks to the events REST backend.
type EventClient struct {
	BaseURL string
	http    *Client
}

func NewEventClient(baseURL string, c *Client) *EventClient {
	if c == nil {
		c = NewClient(DefaultClientConfig())
	}
	return &EventClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		http:    c,
	}
}

// ListEvents fetches one page. The query is expected to be normalized.
func (c *EventClient) ListEvents(ctx context.Context, q domain.Query) (EventList, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("limit", strconv.Itoa(q.PageSize))
	if q.SortBy != "" {
		params.Set("sort_by", q.SortBy)
	}
	if q.SortOrder != "" {
		params.Set("sort_order", string(q.SortOrder))
	}
	for _, s := range q.Statuses {
		params.Add("status", BackendStatus(s))
	}
	if q.DateFilter != domain.DateFilterNone {
		params.Set("date_filter", string(q.DateFilter))
	}

	endpoint := fmt.Sprintf("%s/events?%s", c.BaseURL, params.Encode())
	resp, err := c.http.Get(ctx, endpoint, map[string]string{"Accept": "application/json"})
	if err != nil {
		return EventList{}, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return EventList{}, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListBody))
	if err != nil {
		return EventList{}, mapError(err)
	}
	return ParseEventList(body)
}

func (c *EventClient) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	endpoint := fmt.Sprintf("%s/events/%s/status", c.BaseURL, url.PathEscape(id))
	return c.send(ctx, http.MethodPatch, endpoint, map[string]string{"status": BackendStatus(status)})
}

func (c *EventClient) UpdateEvent(ctx context.Context, id string, body domain.EventUpdate) error {
	endpoint := fmt.Sprintf("%s/events/%s", c.BaseURL, url.PathEscape(id))
	return c.send(ctx, http.MethodPut, endpoint, body)
}

func (c *EventClient) DeleteEvent(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/events/%s", c.BaseURL, url.PathEscape(id))
	return c.send(ctx, http.MethodDelete, endpoint, nil)
}

// send issues a mutation and discards the response body on success.
func (c *EventClient) send(ctx context.Context, method, endpoint string, payload any) error {
	var body io.Reader
	headers := map[string]string{}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
		headers["Content-Type"] = "application/json"
	}

	resp, err := c.http.DoWithBody(ctx, method, endpoint, body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
