package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"eventbook-backend/internal/models"
	"eventbook-backend/internal/web"
)

type contextKey string

const principalKey contextKey = "eventbook_principal"

// UserLoader fetches the user referenced by a verified token. A (nil, nil)
// return means the user no longer exists.
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Authenticate verifies the bearer token on every request, loads the
// referenced user and stores it in the request context as the principal.
// Tokens issued before the user's last password change are rejected, which is
// how a password change revokes outstanding sessions without server-side
// token storage.
func Authenticate(issuer *Issuer, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				web.Error(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			claims, err := issuer.Parse(token)
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					web.Error(w, http.StatusUnauthorized, "token_expired", "session token expired")
					return
				}
				web.Error(w, http.StatusUnauthorized, "invalid_token", "invalid session token")
				return
			}

			user, err := users.GetUserByID(r.Context(), claims.Subject)
			if err != nil {
				log.Printf("Error loading token user %s: %v", claims.Subject, err)
				web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
				return
			}
			if user == nil {
				web.Error(w, http.StatusUnauthorized, "user_not_found", "the user of this token no longer exists")
				return
			}
			if !user.Active {
				web.Error(w, http.StatusUnauthorized, "user_deactivated", "this account has been deactivated")
				return
			}
			if claims.IssuedAt != nil && user.PasswordChangedAfter(claims.IssuedAt.Time) {
				web.Error(w, http.StatusUnauthorized, "password_changed", "password was changed after this token was issued")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext returns the authenticated user placed by Authenticate.
func PrincipalFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(principalKey).(*models.User)
	return user, ok
}

func bearerToken(header string) string {
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
