package auth

import (
	"context"
	"net/http"
	"testing"
)

// mockAuthn is a test authenticator with configurable behavior.
type mockAuthn struct {
	result AuthResult
	calls  int
}

func (m *mockAuthn) Authenticate(_ context.Context, _ *http.Request) AuthResult {
	m.calls++
	return m.result
}

func TestAuthDecision_String(t *testing.T) {
	tests := []struct {
		d    AuthDecision
		want string
	}{
		{Yes, "authenticated"},
		{No, "invalid"},
		{Abstain, "anonymous"},
		{AuthDecision(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("AuthDecision(%d).String() = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestIdentity_HasRole(t *testing.T) {
	id := &Identity{Subject: "alice@example.com", Roles: []string{"USER", "ADMIN"}}
	if !id.HasRole("ADMIN") {
		t.Error("expected ADMIN role")
	}
	if id.HasRole("admin") {
		t.Error("role match must be case-sensitive")
	}

	// Nil identity.
	var anon *Identity
	if anon.HasRole("USER") {
		t.Error("nil identity must have no roles")
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()

	// No identity set.
	if IdentityFromContext(ctx) != nil {
		t.Error("expected nil identity from empty context")
	}
	if IsAuthenticated(ctx) {
		t.Error("empty context must be anonymous")
	}

	// Set and retrieve.
	id := &Identity{Subject: "alice@example.com"}
	ctx = SetIdentity(ctx, id)
	got := IdentityFromContext(ctx)
	if got == nil || got.Subject != "alice@example.com" {
		t.Errorf("got %v, want alice@example.com", got)
	}

	// Explicit nil clears a previous identity.
	ctx = SetIdentity(ctx, nil)
	if IsAuthenticated(ctx) {
		t.Error("explicit nil identity must be anonymous")
	}
}

func TestIdentityContext_NoCollision(t *testing.T) {
	ctx := context.WithValue(context.Background(), "identity", &Identity{Subject: "mallory"})
	if IdentityFromContext(ctx) != nil {
		t.Error("string key must not be read as identity")
	}
}

// Compile-time interface checks.
var (
	_ Authenticator = (*mockAuthn)(nil)
	_ Authenticator = AuthenticatorFunc(nil)
	_ RateLimiter   = (*InProcessLimiter)(nil)
)
