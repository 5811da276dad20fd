package auth

import (
	"net/http"
	"strings"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "token"

const bearerScheme = "bearer"

// ExtractSessionToken reads the session cookie. Clients that cannot hold
// cookies may send the same token as "Authorization: Bearer <token>".
func ExtractSessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}
