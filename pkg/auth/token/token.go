// Package token issues and validates the signed session tokens handed out
// at login.
//
// Tokens are compact HS256 JWTs carrying the subject (the account email),
// the role set granted at issuance, issued-at, expiry, issuer, and a random
// token ID. The signature covers every claim. Roles are a snapshot: a role
// change only reaches a caller once the old token expires and they log in
// again.
//
// Validation has exactly one failure value, ErrInvalidToken. Malformed,
// tampered, and expired tokens are indistinguishable to the caller.
package token

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is the token lifetime used when Config.TTL is zero.
const DefaultTTL = 24 * time.Hour

// ErrInvalidToken is the uniform validation failure.
var ErrInvalidToken = errors.New("invalid token")

// Config holds the token service configuration.
type Config struct {
	// Secret signs and verifies every token. Required.
	Secret Secret

	// TTL is the fixed offset between issued-at and expiry. Default: 24h.
	TTL time.Duration

	// Issuer is written to and required in the iss claim. If empty, the
	// claim is neither written nor checked.
	Issuer string

	// Now overrides the clock (useful for testing). Default: time.Now.
	Now func() time.Time
}

// Claims is the typed payload of a session token.
type Claims struct {
	Roles []string `json:"roles"`
	jwtlib.RegisteredClaims
}

// Service is the sole owner of the signing secret.
type Service struct {
	secret Secret
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwtlib.Parser
}

// New creates a token service from cfg.
func New(cfg Config) (*Service, error) {
	if cfg.Secret.IsZero() {
		return nil, errors.New("token service requires a signing secret")
	}
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("token ttl must not be negative, got %v", cfg.TTL)
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithIssuedAt(),
		jwtlib.WithStrictDecoding(),
		jwtlib.WithTimeFunc(cfg.Now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(cfg.Issuer))
	}

	return &Service{
		secret: cfg.Secret,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    cfg.Now,
		parser: jwtlib.NewParser(opts...),
	}, nil
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject carrying roles. Duplicate role names are
// collapsed, keeping the order of first appearance.
func (s *Service) Issue(subject string, roles []string) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	set, err := roleSet(roles)
	if err != nil {
		return "", err
	}

	now := s.now()
	claims := Claims{
		Roles: set,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret.key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature and expiry of tokenStr and decodes its
// claims. Every failure returns ErrInvalidToken.
func (s *Service) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tok, err := s.parser.ParseWithClaims(tokenStr, claims, func(*jwtlib.Token) (interface{}, error) {
		return s.secret.key, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	// The parser only checks iat when present; a session token must carry it.
	if claims.IssuedAt == nil || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if len(claims.Roles) == 0 {
		return nil, ErrInvalidToken
	}
	for _, r := range claims.Roles {
		if r == "" {
			return nil, ErrInvalidToken
		}
	}

	return claims, nil
}

// roleSet deduplicates roles and rejects empty sets or blank names.
func roleSet(roles []string) ([]string, error) {
	if len(roles) == 0 {
		return nil, errors.New("token requires at least one role")
	}
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r == "" {
			return nil, errors.New("role names must not be empty")
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}
