// Package account implements registration and the credential login flow.
//
// Login is the only place a session token is minted: the email is looked up,
// the password is checked against the stored bcrypt hash, and the token
// service signs a token for the email carrying the account's current roles.
// No server-side session is created.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/simpla/backend/pkg/api"
	"github.com/simpla/backend/pkg/auth"
	"github.com/simpla/backend/pkg/debug"
	"github.com/simpla/backend/pkg/observability"
	"github.com/simpla/backend/pkg/storage"
	"github.com/simpla/backend/pkg/transport"
)

var (
	// ErrInvalidCredentials is returned for both unknown emails and wrong
	// passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
)

// PasswordHasher hashes new passwords and verifies login attempts.
type PasswordHasher interface {
	Hash(plain string) (string, error)

	// Verify reports whether plain matches hash. It must accept an empty
	// hash and return false in roughly the time of a real comparison.
	Verify(plain, hash string) bool
}

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	Issue(subject string, roles []string) (string, error)
}

// Config wires the account service collaborators.
type Config struct {
	Users     transport.UserStore
	Passwords PasswordHasher
	Tokens    TokenIssuer

	// Limiter throttles login attempts per email. Optional.
	Limiter auth.RateLimiter

	// Validation bounds registration input. Zero value uses api defaults.
	Validation api.ValidationConfig

	Logger *slog.Logger
}

// Service registers accounts and exchanges credentials for tokens.
type Service struct {
	users      transport.UserStore
	passwords  PasswordHasher
	tokens     TokenIssuer
	limiter    auth.RateLimiter
	validation api.ValidationConfig
	logger     *slog.Logger
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token string
	User  *api.User
}

// New creates an account service.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Validation == (api.ValidationConfig{}) {
		cfg.Validation = api.DefaultValidationConfig()
	}
	return &Service{
		users:      cfg.Users,
		passwords:  cfg.Passwords,
		tokens:     cfg.Tokens,
		limiter:    cfg.Limiter,
		validation: cfg.Validation,
		logger:     cfg.Logger,
	}
}

// Register creates an account with the USER role. Validation failures are
// returned as *api.APIError; a taken email returns ErrEmailTaken.
func (s *Service) Register(ctx context.Context, email, password string) (*api.User, error) {
	creds := api.Credentials{Email: api.NormalizeEmail(email), Password: password}
	if apiErr := api.ValidateRegistration(&creds, s.validation); apiErr != nil {
		observability.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, apiErr
	}

	hash, err := s.passwords.Hash(creds.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &api.User{
		Email:        creds.Email,
		PasswordHash: hash,
		Roles:        []string{api.RoleUser},
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			observability.RegistrationsTotal.WithLabelValues("conflict").Inc()
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	observability.RegistrationsTotal.WithLabelValues("created").Inc()
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and issues a token whose subject is the
// normalized email and whose roles are the account's roles right now.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = api.NormalizeEmail(email)

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, "login:"+email); err != nil {
			observability.LoginAttemptsTotal.WithLabelValues("rate_limited").Inc()
			observability.RateLimitRejectedTotal.WithLabelValues("login").Inc()
			return nil, err
		}
	}

	if email == "" || password == "" {
		observability.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// Burn a comparison so unknown emails are not faster than wrong passwords.
		s.passwords.Verify(password, "")
		observability.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		debug.Log(ctx, s.logger, debug.Auth, "login rejected", "reason", "unknown_account")
		return nil, ErrInvalidCredentials
	case err != nil:
		observability.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if !s.passwords.Verify(password, user.PasswordHash) {
		observability.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		debug.Log(ctx, s.logger, debug.Auth, "login rejected", "reason", "password_mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Email, user.Roles)
	if err != nil {
		observability.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	observability.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.logger.InfoContext(ctx, "login succeeded", "user_id", user.ID)
	return &LoginResult{Token: token, User: user}, nil
}

// EnsureAdmin creates an account holding both USER and ADMIN roles unless
// one already exists for email. An existing account is left untouched. It
// reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	creds := api.Credentials{Email: api.NormalizeEmail(email), Password: password}
	if apiErr := api.ValidateRegistration(&creds, s.validation); apiErr != nil {
		return false, fmt.Errorf("bootstrap admin: %w", apiErr)
	}

	_, err := s.users.GetUserByEmail(ctx, creds.Email)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, storage.ErrNotFound):
		return false, fmt.Errorf("looking up admin: %w", err)
	}

	hash, err := s.passwords.Hash(creds.Password)
	if err != nil {
		return false, fmt.Errorf("hashing password: %w", err)
	}
	user := &api.User{
		Email:        creds.Email,
		PasswordHash: hash,
		Roles:        []string{api.RoleUser, api.RoleAdmin},
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("creating admin: %w", err)
	}

	s.logger.InfoContext(ctx, "admin account created", "user_id", user.ID)
	return true, nil
}
