// Package identity carries the authenticated staff member through a request.
package identity

import (
	"context"
	"time"
)

// Scopes a principal may hold
const (
	ScopeStaff = "staff"
	ScopeAdmin = "admin"
)

// Principal is the user a request was authenticated as
type Principal struct {
	UserID    uint
	Username  string
	IsAdmin   bool
	IsStaff   bool
	TokenID   string
	ExpiresAt time.Time
}

type principalKey struct{}

// WithPrincipal returns a context carrying p
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored in ctx, if any
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
