package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/simpla/backend/pkg/debug"
	"github.com/simpla/backend/pkg/observability"
	"github.com/simpla/backend/pkg/transport"
)

// passKey marks a request context that already went through Middleware.
type passKey struct{}

// Middleware creates HTTP middleware that resolves the caller's identity
// exactly once per request and always forwards to next.
//
// A Yes vote attaches the identity to a fresh request context. No, Abstain,
// a Yes without a usable identity, and a panic inside the authenticator all
// leave the request anonymous. The middleware never writes a response.
func Middleware(authn Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Nested or repeated wrapping must not authenticate twice.
			if ctx.Value(passKey{}) != nil {
				next.ServeHTTP(w, r)
				return
			}

			result := authenticate(ctx, authn, r, logger)
			if result.Decision == Yes && (result.Identity == nil || result.Identity.Subject == "") {
				result = AuthResult{Decision: No, Err: fmt.Errorf("authenticator returned identity without subject")}
			}

			observability.AuthOutcomesTotal.WithLabelValues(result.Decision.String()).Inc()

			var identity *Identity
			switch result.Decision {
			case Yes:
				identity = result.Identity
				debug.Log(ctx, logger, debug.Auth, "authentication succeeded",
					"subject", identity.Subject,
					"path", r.URL.Path,
					"request_id", transport.RequestIDFromContext(ctx),
				)
			case No:
				debug.Log(ctx, logger, debug.Auth, "authentication failed, continuing anonymously",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"request_id", transport.RequestIDFromContext(ctx),
					"error", result.Err,
				)
			}

			// Always overwrite: an anonymous request carries an explicit nil identity.
			ctx = SetIdentity(ctx, identity)
			ctx = context.WithValue(ctx, passKey{}, true)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate runs authn and converts a panic into a No vote.
func authenticate(ctx context.Context, authn Authenticator, r *http.Request, logger *slog.Logger) (result AuthResult) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("authenticator panicked, continuing anonymously",
				"path", r.URL.Path,
				"panic", fmt.Sprint(p),
			)
			result = AuthResult{Decision: No, Err: fmt.Errorf("authenticator panic: %v", p)}
		}
	}()

	if authn == nil {
		return AuthResult{Decision: Abstain}
	}
	return authn.Authenticate(ctx, r)
}
