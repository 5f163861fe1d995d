package middleware

import (
	"net/http"
	"strings"

	"github.com/hongminglow/timecard-be/internal/auth"
	"github.com/hongminglow/timecard-be/internal/http/respond"
)

// TokenVerifier is the part of auth.TokenManager the session gate needs.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequireAuth admits only requests carrying "Authorization: Bearer <token>" with a
// valid token, and attaches the caller's identity to the request context.
func RequireAuth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				RecordAuthAttempt("session", false)
				respond.Error(w, http.StatusUnauthorized, respond.CodeMissingAuthorization, "Missing authorization header")
				return
			}
			parts := strings.Split(header, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				RecordAuthAttempt("session", false)
				respond.Error(w, http.StatusUnauthorized, respond.CodeMalformedAuth, "Malformed authorization header")
				return
			}
			claims, err := tokens.Verify(parts[1])
			if err != nil {
				RecordAuthAttempt("session", false)
				respond.Error(w, http.StatusUnauthorized, respond.CodeInvalidToken, "Invalid token")
				return
			}
			ctx := auth.WithIdentity(r.Context(), auth.Identity{UserID: claims.UserID, Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
