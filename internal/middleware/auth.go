package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mediavault/service/internal/auth"
	"github.com/mediavault/service/internal/response"
)

// RequireAuth returns middleware that extracts a Bearer access token,
// validates it, and attaches the resolved principal to the request context.
// Missing or malformed headers are rejected before the token manager is
// ever consulted; no downstream handler runs on failure.
func RequireAuth(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "authorization header required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "invalid authorization header format")
				return
			}

			p, err := tokens.Validate(parts[1])
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					response.Unauthorized(w, "token expired")
					return
				}
				response.Unauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole returns middleware enforcing a role on an already-resolved
// principal. It is mounted strictly inside a RequireAuth group; a missing
// principal is treated as an unauthenticated request rather than a panic.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "authorization required")
				return
			}
			if p.Role != role {
				response.Forbidden(w, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
