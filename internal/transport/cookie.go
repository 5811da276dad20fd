package transport

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var ErrNoResponseWriter = errors.New("no response writer in context")

// CookieOptions controls the attributes of the session cookie.
type CookieOptions struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// SetSessionCookie writes an http-only session cookie on the current response.
func SetSessionCookie(ctx context.Context, opts CookieOptions, value string) error {
	w := GetResponseWriter(ctx)
	if w == nil {
		return ErrNoResponseWriter
	}

	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(opts.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSessionCookie expires the session cookie on the current response.
func ClearSessionCookie(ctx context.Context, opts CookieOptions) error {
	w := GetResponseWriter(ctx)
	if w == nil {
		return ErrNoResponseWriter
	}
	ClearCookie(w, opts)
	return nil
}

func ClearCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
