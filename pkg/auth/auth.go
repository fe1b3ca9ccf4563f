package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
)

// AuthDecision represents the three possible outcomes of authentication.
type AuthDecision int

const (
	// Yes means credentials are valid and the identity is used.
	Yes AuthDecision = iota

	// No means credentials are present but invalid. The request continues
	// anonymously.
	No

	// Abstain means the request carries no credentials this authenticator
	// understands. The request continues anonymously.
	Abstain
)

// String returns the outcome label used in logs and metrics.
func (d AuthDecision) String() string {
	switch d {
	case Yes:
		return "authenticated"
	case No:
		return "invalid"
	case Abstain:
		return "anonymous"
	default:
		return "unknown"
	}
}

// AuthResult carries the outcome of an authentication attempt.
type AuthResult struct {
	Decision AuthDecision
	Identity *Identity // populated only when Decision == Yes
	Err      error     // populated only when Decision == No
}

// Identity represents an authenticated caller.
type Identity struct {
	// Subject is the unique identifier (the account email, non-empty).
	Subject string

	// Roles is the role set snapshotted into the token at login.
	Roles []string
}

// HasRole reports whether the identity carries role. A nil identity has no roles.
func (id *Identity) HasRole(role string) bool {
	if id == nil {
		return false
	}
	return slices.Contains(id.Roles, role)
}

// Authenticator examines request credentials and returns a three-outcome vote.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) AuthResult
}

// AuthenticatorFunc adapts an ordinary function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, r *http.Request) AuthResult

// Authenticate calls f(ctx, r).
func (f AuthenticatorFunc) Authenticate(ctx context.Context, r *http.Request) AuthResult {
	return f(ctx, r)
}

// Sentinel errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)
