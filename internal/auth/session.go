package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of a session token: the user id and nothing else.
type SessionClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

var ErrInvalidSession = errors.New("invalid session token")

// SessionSigner issues and verifies HS256 session tokens.
type SessionSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionSigner(secret string, ttl time.Duration) *SessionSigner {
	return &SessionSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *SessionSigner) TTL() time.Duration { return s.ttl }

func (s *SessionSigner) Issue(userID string) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("session secret is not set")
	}

	now := s.now()
	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature and expiry and returns the user id.
func (s *SessionSigner) Verify(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.secret, nil
		},
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", errors.Join(ErrInvalidSession, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", ErrInvalidSession
	}

	return claims.UserID, nil
}
