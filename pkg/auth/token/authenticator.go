package token

import (
	"context"
	"net/http"
	"strings"

	"github.com/simpla/backend/pkg/auth"
)

// bearerPrefix is matched literally and case-sensitively, trailing space included.
const bearerPrefix = "Bearer "

// Validator decodes a token string into claims.
type Validator interface {
	Validate(token string) (*Claims, error)
}

// Authenticator turns an Authorization: Bearer header into an identity.
type Authenticator struct {
	tokens Validator
}

// NewAuthenticator creates a bearer-token authenticator backed by tokens.
func NewAuthenticator(tokens Validator) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Authenticate extracts a bearer token from the Authorization header and
// validates it.
//
// Decision outcomes:
//   - Abstain: no Authorization header, or not prefixed by exactly "Bearer "
//   - No: bearer token present but invalid (malformed, tampered, or expired)
//   - Yes: valid token with populated Identity
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	header := r.Header.Get("Authorization")
	if header == "" {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	if !strings.HasPrefix(header, bearerPrefix) {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	claims, err := a.tokens.Validate(strings.TrimPrefix(header, bearerPrefix))
	if err != nil {
		return auth.AuthResult{Decision: auth.No, Err: err}
	}

	roles := make([]string, len(claims.Roles))
	copy(roles, claims.Roles)

	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: &auth.Identity{
			Subject: claims.Subject,
			Roles:   roles,
		},
	}
}
