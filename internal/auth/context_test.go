package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityContext(t *testing.T) {
	assert.Nil(t, IdentityFrom(context.Background()))

	id := &Identity{UserID: "u1", Email: "wes@example.com", Permissions: []Permission{PermissionUser}}
	ctx := WithIdentity(context.Background(), id)
	assert.Same(t, id, IdentityFrom(ctx))

	got, err := MustIdentity(id)
	assert.NoError(t, err)
	assert.Same(t, id, got)

	_, err = MustIdentity(nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = MustIdentity(&Identity{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
