// Package authtransport is the request authenticator: an http.RoundTripper
// that attaches the bearer token to backend-bound requests and recovers from
// a 401 with a single-flight credential refresh shared by every request that
// fails while the refresh is in flight.
package authtransport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ccawaisnadeem/storefront-go/internal/api"
	"github.com/ccawaisnadeem/storefront-go/internal/domain"
)

const refreshTimeout = 30 * time.Second

// TokenSource is the slice of the session store the authenticator needs.
// Refresh is expected to force a logout itself when the server rejects the
// refresh token.
type TokenSource interface {
	AccessToken() string
	Refresh(ctx context.Context) (domain.AuthTokens, error)
}

type Authenticator struct {
	base    http.RoundTripper
	tokens  TokenSource
	baseURL *url.URL

	// collapses concurrent 401-driven refreshes into one call whose result
	// every waiter shares
	sfg singleflight.Group
}

func New(base http.RoundTripper, tokens TokenSource, backendBaseURL string) (*Authenticator, error) {
	if base == nil {
		base = http.DefaultTransport
	}
	u, err := url.Parse(backendBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	return &Authenticator{base: base, tokens: tokens, baseURL: u}, nil
}

func (a *Authenticator) RoundTrip(req *http.Request) (*http.Response, error) {
	// never leak the bearer token across origins
	if !a.sameOrigin(req.URL) {
		return a.base.RoundTrip(req)
	}

	token := a.tokens.AccessToken()
	resp, err := a.base.RoundTrip(a.withBearer(req, token))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || api.IsAuthPath(a.relativePath(req.URL)) {
		// auth endpoints answer their own 401s; retrying them against the
		// refresh endpoint would loop forever
		return resp, nil
	}

	// drain the rejected response so the connection can be reused
	_ = resp.Body.Close()

	newToken, err := a.refresh(req.Context())
	if err != nil {
		return nil, fmt.Errorf("authenticate request to %s: %w", req.URL.Path, err)
	}

	return a.base.RoundTrip(a.withBearer(req, newToken))
}

// refresh funnels every concurrent caller through one Refresh call. The
// shared call runs on its own context: the first caller going away must not
// starve the queue waiting behind it.
func (a *Authenticator) refresh(ctx context.Context) (string, error) {
	ch := a.sfg.DoChan("refresh", func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		tokens, err := a.tokens.Refresh(refreshCtx)
		if err != nil {
			return "", err
		}
		return tokens.AccessToken, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// withBearer clones the request (rewinding the body for retries) and sets
// the Authorization header when a token is present.
func (a *Authenticator) withBearer(req *http.Request, token string) *http.Request {
	clone := req.Clone(req.Context())
	if req.Body != nil && req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			clone.Body = body
		}
	}
	if token != "" {
		clone.Header.Set("Authorization", "Bearer "+token)
	}
	return clone
}

func (a *Authenticator) sameOrigin(u *url.URL) bool {
	return u.Scheme == a.baseURL.Scheme && u.Host == a.baseURL.Host &&
		strings.HasPrefix(u.Path, a.baseURL.Path)
}

func (a *Authenticator) relativePath(u *url.URL) string {
	return strings.TrimPrefix(u.Path, strings.TrimRight(a.baseURL.Path, "/"))
}
