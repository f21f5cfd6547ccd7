// Package auth verifies operator identities on authenticated routes. Issuance is external:
// this package only checks bearer tokens (or, in dev mode, a trusted header).
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthenticated is returned when no acceptable credential is present.
var ErrUnauthenticated = errors.New("unauthenticated")

// Principal is the verified caller.
type Principal struct {
	UserID string
}

// Authenticator resolves the caller of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (Principal, error)
}

type principalKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// DefaultUserHeader carries the caller id in header mode.
const DefaultUserHeader = "X-User-ID"

// HeaderAuthenticator trusts a header set by an upstream gateway. Dev and gateway
// deployments only; never expose it directly to the internet.
type HeaderAuthenticator struct {
	Header string
}

// Authenticate reads the caller id from the configured header.
func (h HeaderAuthenticator) Authenticate(r *http.Request) (Principal, error) {
	name := h.Header
	if name == "" {
		name = DefaultUserHeader
	}
	id := strings.TrimSpace(r.Header.Get(name))
	if id == "" {
		return Principal{}, ErrUnauthenticated
	}
	return Principal{UserID: id}, nil
}
