package middleware

import (
	"net/http"
	"strings"

	"fileflow/internal/auth"
	"fileflow/internal/domain/models"
	"fileflow/internal/httputil"
)

// publicPaths skip authentication.
var publicPaths = map[string]bool{
	"/health": true,
}

// AuthMiddleware verifies the bearer token and stores the caller's identity
// in the request context.
func AuthMiddleware(verifier auth.JWTVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			role := claims.Role
			if role == "" {
				role = "user"
			}
			r = httputil.WithIdentity(r, models.Identity{UserID: claims.GetUserID(), Role: role})
			next.ServeHTTP(w, r)
		})
	}
}
