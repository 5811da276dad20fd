package cart

import "sickfits-be/internal/apperr"

var (
	ErrCartItemNotFound = apperr.New(apperr.KindNotFound, "cart item not found")
	ErrNotYourCartItem  = apperr.New(apperr.KindForbidden, "this cart item does not belong to you")
	ErrItemNotFound     = apperr.New(apperr.KindNotFound, "item not found")

	// PgForeignKeyViolation is raised when the referenced item does not exist.
	PgForeignKeyViolation = "23503"
)
