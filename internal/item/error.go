package item

import "sickfits-be/internal/apperr"

var (
	ErrItemNotFound    = apperr.New(apperr.KindNotFound, "item not found")
	ErrNotAllowed      = apperr.New(apperr.KindForbidden, "you are not allowed to delete this item")
	ErrUpdateForbidden = apperr.New(apperr.KindForbidden, "you are not allowed to update this item")
	ErrTitleRequired   = apperr.New(apperr.KindValidation, "title is required")
	ErrNegativePrice   = apperr.New(apperr.KindValidation, "price must not be negative")
	ErrInvalidOrderBy  = apperr.New(apperr.KindValidation, "unknown item ordering")
)
