package integration

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/simpla/backend/pkg/api"
	"github.com/simpla/backend/pkg/auth/token"
)

func TestRegisterLoginMe(t *testing.T) {
	email := uniqueEmail("flow")
	registerUser(t, "  "+strings.ToUpper(email)+" ", "s3cret-pass")

	tok := loginUser(t, email, "s3cret-pass")
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("token %q is not a compact JWT", tok)
	}

	resp := doJSON(t, http.MethodGet, "/api/auth/me", tok, nil)
	expectStatus(t, resp, http.StatusOK)

	var me api.Principal
	decodeJSON(t, resp, &me)
	if !me.Authenticated {
		t.Fatal("authenticated = false, want true")
	}
	if me.Email != email {
		t.Errorf("email = %q, want normalized %q", me.Email, email)
	}
	if len(me.Roles) != 1 || me.Roles[0] != api.RoleUser {
		t.Errorf("roles = %v, want [USER]", me.Roles)
	}
}

func TestMeAnonymous(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
		{"lowercase bearer", "bearer " + testEnv.AdminToken},
		{"garbage token", "Bearer garbage"},
		{"empty bearer", "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, testEnv.BaseURL()+"/api/auth/me", nil)
			if err != nil {
				t.Fatalf("creating request: %v", err)
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			expectStatus(t, resp, http.StatusOK)

			var me api.Principal
			decodeJSON(t, resp, &me)
			if me.Authenticated || me.Email != "" || len(me.Roles) != 0 {
				t.Errorf("principal = %+v, want anonymous", me)
			}
		})
	}
}

func TestTamperedTokenIsAnonymous(t *testing.T) {
	_, tok := newUser(t, "tamper")

	// Flip one character in the signature segment.
	last := tok[len(tok)-2]
	repl := byte('A')
	if last == 'A' {
		repl = 'B'
	}
	tampered := tok[:len(tok)-2] + string(repl) + tok[len(tok)-1:]

	resp := doJSON(t, http.MethodGet, "/api/auth/me", tampered, nil)
	expectStatus(t, resp, http.StatusOK)
	var me api.Principal
	decodeJSON(t, resp, &me)
	if me.Authenticated {
		t.Error("tampered token authenticated the caller")
	}
}

func TestExpiredTokenIsAnonymous(t *testing.T) {
	email, _ := newUser(t, "expired")

	// Same secret and issuer, but a clock two hours behind: the token's
	// expiry is already an hour in the past for the server.
	stale, err := token.New(token.Config{
		Secret: testEnv.Secret,
		TTL:    time.Hour,
		Issuer: "simpla",
		Now:    func() time.Time { return time.Now().Add(-2 * time.Hour) },
	})
	if err != nil {
		t.Fatalf("token.New: %v", err)
	}
	expired, err := stale.Issue(email, []string{api.RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	resp := doJSON(t, http.MethodGet, "/api/auth/me", expired, nil)
	expectStatus(t, resp, http.StatusOK)
	var me api.Principal
	decodeJSON(t, resp, &me)
	if me.Authenticated {
		t.Error("expired token authenticated the caller")
	}

	resp = doJSON(t, http.MethodPost, "/api/chat", expired, map[string]string{
		"question": "q", "answer": "a",
	})
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
		wantType   api.ErrorType
	}{
		{"missing email", map[string]string{"password": "s3cret-pass"}, http.StatusBadRequest, api.ErrorTypeInvalidRequest},
		{"bad email", map[string]string{"email": "nope", "password": "s3cret-pass"}, http.StatusBadRequest, api.ErrorTypeInvalidRequest},
		{"short password", map[string]string{"email": uniqueEmail("short"), "password": "short"}, http.StatusBadRequest, api.ErrorTypeInvalidRequest},
		{"duplicate", map[string]string{"email": adminEmail, "password": "s3cret-pass"}, http.StatusConflict, api.ErrorTypeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, "/api/auth/register", "", tt.body)
			expectStatus(t, resp, tt.wantStatus)

			var errResp api.ErrorResponse
			decodeJSON(t, resp, &errResp)
			if errResp.Error == nil || errResp.Error.Type != tt.wantType {
				t.Errorf("error = %+v, want type %q", errResp.Error, tt.wantType)
			}
		})
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	email := uniqueEmail("uniform")
	registerUser(t, email, "s3cret-pass")

	var bodies []string
	for _, creds := range []map[string]string{
		{"email": email, "password": "wrong-pass"},
		{"email": uniqueEmail("ghost"), "password": "s3cret-pass"},
		{"email": "", "password": ""},
	} {
		resp := doJSON(t, http.MethodPost, "/api/auth/login", "", creds)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("login %v: status = %d, want 401", creds["email"], resp.StatusCode)
		}
		bodies = append(bodies, strings.TrimSpace(readBody(t, resp)))
	}

	for _, b := range bodies {
		if b != `{"error":"Invalid credentials"}` {
			t.Errorf("body = %s, want the fixed invalid credentials body", b)
		}
	}
}

func TestLoginRateLimited(t *testing.T) {
	email := uniqueEmail("limited")
	registerUser(t, email, "s3cret-pass")

	for i := 0; i < loginBudget; i++ {
		resp := doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": email, "password": "wrong-pass",
		})
		expectStatus(t, resp, http.StatusUnauthorized)
		resp.Body.Close()
	}

	// Even the right password is refused once the budget is spent.
	resp := doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "s3cret-pass",
	})
	expectStatus(t, resp, http.StatusTooManyRequests)
	if resp.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	resp.Body.Close()
}

func TestRolesAreSnapshotAtLogin(t *testing.T) {
	// The admin token carries ADMIN; a regular user's does not, and no
	// amount of body tampering on the login request changes that.
	resp := doJSON(t, http.MethodGet, "/api/auth/me", testEnv.AdminToken, nil)
	expectStatus(t, resp, http.StatusOK)
	var me api.Principal
	decodeJSON(t, resp, &me)
	if len(me.Roles) != 2 || me.Roles[0] != api.RoleUser || me.Roles[1] != api.RoleAdmin {
		t.Errorf("admin roles = %v, want [USER ADMIN]", me.Roles)
	}

	email := uniqueEmail("snapshot")
	registerUser(t, email, "s3cret-pass")
	resp = doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": email, "password": "s3cret-pass", "roles": []string{api.RoleAdmin},
	})
	expectStatus(t, resp, http.StatusOK)
	var login api.LoginResponse
	decodeJSON(t, resp, &login)

	claims, err := testEnv.Tokens.Validate(login.Token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != api.RoleUser {
		t.Errorf("roles = %v, want [USER]", claims.Roles)
	}
}
