package order

import "sickfits-be/internal/apperr"

var (
	ErrOrderNotFound      = apperr.New(apperr.KindNotFound, "order not found")
	ErrOrderForbidden     = apperr.New(apperr.KindForbidden, "you can't see this order")
	ErrEmptyCart          = apperr.New(apperr.KindValidation, "your cart is empty")
	ErrMissingToken       = apperr.New(apperr.KindValidation, "a payment token is required")
	ErrCheckoutFailed     = apperr.New(apperr.KindValidation, "this checkout failed, retry with a new idempotency key")
	ErrKeyInUse           = apperr.New(apperr.KindForbidden, "idempotency key belongs to another checkout")
	ErrInvalidKey         = apperr.New(apperr.KindValidation, "idempotency key must be 1-64 letters, digits, '-' or '_'")
	ErrCheckoutNotFound   = apperr.New(apperr.KindNotFound, "checkout not found")
	ErrCheckoutNotCharged = apperr.New(apperr.KindConflict, "checkout has not been charged")

	PgUniqueViolation = "23505"
)
