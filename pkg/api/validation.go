package api

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MinPasswordLength int
	MaxPasswordLength int
	MaxTitleLength    int
	MaxContentSize    int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MinPasswordLength: 8,
		MaxPasswordLength: 72, // bcrypt ignores anything past 72 bytes
		MaxTitleLength:    1000,
		MaxContentSize:    10 * 1024 * 1024, // 10MB
	}
}

// NormalizeEmail trims surrounding whitespace and lowercases the address so
// that lookups and token subjects are stable.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateRegistration checks the credentials of a new account. It expects
// an already normalized email and returns the first failure, or nil.
func ValidateRegistration(c *Credentials, cfg ValidationConfig) *APIError {
	if c.Email == "" {
		return NewInvalidRequestError("email", "email is required")
	}
	addr, err := mail.ParseAddress(c.Email)
	if err != nil || addr.Address != c.Email {
		return NewInvalidRequestError("email", "email is not a valid address")
	}

	if c.Password == "" {
		return NewInvalidRequestError("password", "password is required")
	}
	if cfg.MinPasswordLength > 0 && len(c.Password) < cfg.MinPasswordLength {
		return NewInvalidRequestError("password",
			fmt.Sprintf("password must be at least %d characters", cfg.MinPasswordLength))
	}
	if cfg.MaxPasswordLength > 0 && len(c.Password) > cfg.MaxPasswordLength {
		return NewInvalidRequestError("password",
			fmt.Sprintf("password must be at most %d bytes", cfg.MaxPasswordLength))
	}

	return nil
}

// ValidateLegalDoc checks a document submitted for creation.
func ValidateLegalDoc(doc *LegalDoc, cfg ValidationConfig) *APIError {
	if strings.TrimSpace(doc.Title) == "" {
		return NewInvalidRequestError("title", "title is required")
	}
	if cfg.MaxTitleLength > 0 && len(doc.Title) > cfg.MaxTitleLength {
		return NewInvalidRequestError("title",
			fmt.Sprintf("title exceeds maximum of %d characters", cfg.MaxTitleLength))
	}

	if doc.Body == "" {
		return NewInvalidRequestError("body", "body is required")
	}
	if cfg.MaxContentSize > 0 && len(doc.Body) > cfg.MaxContentSize {
		return NewInvalidRequestError("body",
			fmt.Sprintf("body exceeds maximum of %d bytes", cfg.MaxContentSize))
	}

	if doc.Date != "" {
		if _, err := time.Parse(time.DateOnly, doc.Date); err != nil {
			return NewInvalidRequestError("date", "date must use the YYYY-MM-DD format")
		}
	}

	return nil
}

// ValidateChat checks a chat exchange submitted for storage.
func ValidateChat(req *CreateChatRequest, cfg ValidationConfig) *APIError {
	if strings.TrimSpace(req.Question) == "" {
		return NewInvalidRequestError("question", "question is required")
	}
	if cfg.MaxContentSize > 0 && len(req.Question)+len(req.Answer) > cfg.MaxContentSize {
		return NewInvalidRequestError("answer",
			fmt.Sprintf("chat exceeds maximum of %d bytes", cfg.MaxContentSize))
	}
	return nil
}
