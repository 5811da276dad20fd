package middleware

import (
	"context"
	"net/http"

	"sickfits-be/internal/apperr"
	"sickfits-be/internal/auth"
	"sickfits-be/internal/logger"
	"sickfits-be/internal/transport"
	"sickfits-be/internal/user"
	"sickfits-be/internal/utils"

	"go.uber.org/zap"
)

// TokenVerifier turns a session token into a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserLoader resolves the user behind a session.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Session attaches the caller's identity to the request context. Requests
// without a session pass through anonymously; a forged or expired session is
// rejected and its cookie cleared.
func Session(verifier TokenVerifier, users UserLoader, cookie transport.CookieOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ExtractSessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			log := logger.FromCtx(ctx)

			userID, err := verifier.Verify(token)
			if err != nil {
				log.Info("rejected session token", zap.Error(err))
				transport.ClearCookie(w, cookie)
				utils.WriteGraphQLError(w, http.StatusUnauthorized, "invalid session", string(apperr.KindUnauthenticated))
				return
			}

			u, err := users.GetByID(ctx, userID)
			if err != nil {
				if apperr.IsKind(err, apperr.KindNotFound) {
					// The account is gone; carry on as a visitor.
					log.Info("session user no longer exists", zap.String("user_id", userID))
					next.ServeHTTP(w, r)
					return
				}
				log.Error("failed to load session user", zap.Error(err))
				utils.WriteGraphQLError(w, http.StatusInternalServerError, "internal server error", string(apperr.KindInternal))
				return
			}

			ctx = auth.WithIdentity(ctx, u.Identity())
			ctx = logger.WithUserID(ctx, u.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
