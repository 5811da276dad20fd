package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	notFound := New(KindNotFound, "item not found")

	assert.Equal(t, KindNotFound, KindOf(notFound))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("lookup: %w", notFound)))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.True(t, IsKind(notFound, KindNotFound))
	assert.False(t, IsKind(nil, KindNotFound))
}

func TestWrap(t *testing.T) {
	cause := errors.New("card declined")
	err := Wrap(KindValidation, "payment failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "payment failed: card declined", err.Error())
	assert.Equal(t, "payment failed", Public(err))
}

func TestPublic(t *testing.T) {
	assert.Equal(t, "no such user found for email a@b.c", Public(Newf(KindNotFound, "no such user found for email %s", "a@b.c")))
	assert.Equal(t, "internal server error", Public(errors.New("pq: connection refused")))
}
