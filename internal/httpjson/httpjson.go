// Package httpjson is the small JSON-over-HTTP client shared by the producers'
// remote collaborators. Requests are traced through otelhttp.
package httpjson

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/TGBox/stat-tracker/pkg/errmodel"
)

// maxBody caps the response size read from a collaborator.
const maxBody = 8 << 20

// Client performs GET requests and decodes JSON responses.
type Client struct {
	HTTP      *http.Client
	UserAgent string
}

// New returns a Client with the given per-request timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		UserAgent: "stat-tracker",
	}
}

// GetJSON fetches base with query and decodes the body into out. Transport
// failures and non-2xx statuses are network errors; undecodable bodies are
// validation errors.
func (c *Client) GetJSON(ctx context.Context, base string, query url.Values, out any) error {
	u, err := url.Parse(base)
	if err != nil {
		return errmodel.Validation("bad_url", "invalid request URL", map[string]any{"url": base, "error": err.Error()})
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errmodel.Validation("bad_request", "cannot build request", map[string]any{"url": u.String(), "error": err.Error()})
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	res, err := hc.Do(req)
	if err != nil {
		return errmodel.Network("request_failed", "request failed", map[string]any{"url": u.Redacted()}, err)
	}
	defer func() { _ = res.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return errmodel.Network("read_failed", "reading response failed", map[string]any{"url": u.Redacted()}, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return errmodel.Network("bad_status", fmt.Sprintf("unexpected status %d", res.StatusCode), map[string]any{
			"url":    u.Redacted(),
			"status": res.StatusCode,
			"body":   string(body),
		}, nil)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errmodel.Validation("bad_response", "response is not the expected JSON", map[string]any{"url": u.Redacted(), "error": err.Error()})
	}
	return nil
}
