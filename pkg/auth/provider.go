// Package auth injects the upstream API bearer token into outgoing requests.
package auth

import (
	"context"
	"net/http"
)

// Provider supplies authentication headers for an outgoing request.
type Provider interface {
	AuthHeaders(ctx context.Context) http.Header
}

type bearerProvider struct {
	token string
}

// NewBearerProvider returns a Provider that sends "Authorization: Bearer <token>".
// A token carried by the request context wins over the configured one; with
// neither, no header is added.
func NewBearerProvider(token string) Provider {
	return &bearerProvider{token: token}
}

func (p *bearerProvider) AuthHeaders(ctx context.Context) http.Header {
	token := p.token
	if t, ok := TokenFromContext(ctx); ok {
		token = t
	}
	if token == "" {
		return nil
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

// RoundTripper adds the provider's headers to every request.
type RoundTripper struct {
	base     http.RoundTripper
	provider Provider
}

// NewRoundTripper wraps base (http.DefaultTransport when nil).
func NewRoundTripper(base http.RoundTripper, provider Provider) *RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RoundTripper{base: base, provider: provider}
}

// RoundTrip clones req before touching headers; the caller's request is never modified.
func (t *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	headers := t.provider.AuthHeaders(req.Context())
	if len(headers) == 0 {
		return t.base.RoundTrip(req)
	}
	cloned := req.Clone(req.Context())
	for key, values := range headers {
		cloned.Header.Del(key)
		for _, v := range values {
			cloned.Header.Add(key, v)
		}
	}
	return t.base.RoundTrip(cloned)
}
