package user

import "sickfits-be/internal/apperr"

var (
	ErrEmailExists       = apperr.New(apperr.KindConflict, "email already registered")
	ErrUserNotFound      = apperr.New(apperr.KindNotFound, "user not found")
	ErrInvalidPassword   = apperr.New(apperr.KindValidation, "invalid password")
	ErrPasswordMismatch  = apperr.New(apperr.KindValidation, "passwords don't match")
	ErrInvalidResetToken = apperr.New(apperr.KindValidation, "this token is either invalid or expired")
	ErrMissingFields     = apperr.New(apperr.KindValidation, "email, name and password are required")

	// PgUniqueViolation is the Postgres error code for unique constraint failures.
	PgUniqueViolation = "23505"
)

func noSuchUser(email string) error {
	return apperr.Newf(apperr.KindNotFound, "no such user found for email %s", email)
}
