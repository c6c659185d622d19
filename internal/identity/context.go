package identity

import (
	"context"

	"github.com/ericfitz/storefront/internal/models"
)

// Identity is the authenticated caller of a request
type Identity struct {
	UserID  string
	Role    models.Role
	TokenID string
}

// IsAdmin reports whether the caller holds the ADMIN role
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity attached by WithIdentity
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
