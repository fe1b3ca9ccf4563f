package auth

import (
	"log/slog"
	"net/http"

	"github.com/simpla/backend/pkg/api"
	"github.com/simpla/backend/pkg/transport"
)

// RequireAuthenticated rejects anonymous requests with 401.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAuthenticated(r.Context()) {
			transport.WriteAPIError(w, api.NewUnauthorizedError(ErrUnauthenticated.Error()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects anonymous requests with 401 and callers lacking role
// with 403.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if id == nil {
				transport.WriteAPIError(w, api.NewUnauthorizedError(ErrUnauthenticated.Error()))
				return
			}
			if !id.HasRole(role) {
				slog.Warn("insufficient permissions",
					"subject", id.Subject,
					"required_role", role,
					"path", r.URL.Path,
				)
				transport.WriteAPIError(w, api.NewForbiddenError(ErrForbidden.Error()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
