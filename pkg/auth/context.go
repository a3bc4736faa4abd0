package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const tokenContextKey contextKey = "auth-token"

// WithToken returns a context carrying a bearer token that takes precedence
// over the provider's configured token for requests made with it.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// TokenFromContext returns the token set by WithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey).(string)
	return token, ok && token != ""
}

// FromRequest copies a bearer token presented to an HTTP transport into ctx,
// so an MCP client can call the upstream API with its own credentials.
// It has the shape of the mcp-go HTTP context functions.
func FromRequest(ctx context.Context, r *http.Request) context.Context {
	if token := BearerToken(r.Header.Get("Authorization")); token != "" {
		return WithToken(ctx, token)
	}
	return ctx
}

// BearerToken extracts the token from an "Authorization: Bearer ..." value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
