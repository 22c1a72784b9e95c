package auth

import (
	"context"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string
	Role   model.Role
	Name   string
}

// IsFaculty reports whether the caller may organize events.
func (id Identity) IsFaculty() bool {
	return id.Role == model.RoleFaculty
}

type identityContextKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity stored in ctx, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok && id.UserID != ""
}
