package auth

import (
	"context"

	"sickfits-be/internal/apperr"
)

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID      string
	Email       string
	Name        string
	Permissions []Permission
}

func (i *Identity) PermissionSet() []Permission {
	if i == nil {
		return nil
	}
	return i.Permissions
}

var ErrNotAuthenticated = apperr.New(apperr.KindUnauthenticated, "you must be logged in to do that")

type ctxKey string

const identityKey ctxKey = "identity"

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the caller, or nil for anonymous requests.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// MustIdentity returns the caller or ErrNotAuthenticated.
func MustIdentity(id *Identity) (*Identity, error) {
	if id == nil || id.UserID == "" {
		return nil, ErrNotAuthenticated
	}
	return id, nil
}
