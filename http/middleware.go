package http

import (
	"net/http"
	"strings"

	"github.com/mkravets/filevault"
)

// TokenVerifier validates a bearer token and resolves the principal it
// identifies.
type TokenVerifier interface {
	VerifyToken(token string) (filevault.Principal, error)
}

// AuthMiddleware creates middleware that enforces bearer-token authentication
// and places the resolved principal in the request context.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing bearer token")
				return
			}

			principal, err := verifier.VerifyToken(token)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(filevault.WithPrincipal(r.Context(), principal)))
		})
	}
}
