// Package api holds the REST resource clients for the storefront backend and
// the single place where HTTP responses are mapped onto the client-side error
// taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client is the shared plumbing under every resource client: base URL
// joining, JSON encode/decode, error mapping, and a circuit breaker that only
// counts transport failures (an HTTP 4xx is a valid answer, not an outage).
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name: "storefront-api",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		breaker: breaker,
	}
}

// NewHTTPClient builds the http.Client the SDK uses: the given transport
// (usually the request authenticator) wrapped with otel instrumentation. No
// client-level timeout is set here; per-call deadlines come from the caller's
// context and everything else rides on transport defaults.
func NewHTTPClient(rt http.RoundTripper) *http.Client {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &http.Client{Transport: otelhttp.NewTransport(rt)}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.http.Do(req)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		// breaker open, too many half-open probes, or the request never
		// reached the server
		return fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnknown, err)
	}
	return nil
}
