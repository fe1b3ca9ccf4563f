package transport

import (
	"context"

	"github.com/simpla/backend/pkg/api"
)

// UserStore persists accounts. Emails are stored normalized (trimmed,
// lowercased) and are unique.
type UserStore interface {
	// CreateUser inserts u and fills in its ID and CreatedAt. Returns
	// storage.ErrConflict if the email is already registered.
	CreateUser(ctx context.Context, u *api.User) error

	// GetUserByEmail returns storage.ErrNotFound for unknown emails.
	GetUserByEmail(ctx context.Context, email string) (*api.User, error)
}

// LegalDocStore persists legal documents.
type LegalDocStore interface {
	// CreateLegalDoc inserts d and fills in its ID and CreatedAt. Returns
	// storage.ErrConflict if a non-empty ExternalID is already taken.
	CreateLegalDoc(ctx context.Context, d *api.LegalDoc) error

	// GetLegalDoc returns storage.ErrNotFound if no document has id.
	GetLegalDoc(ctx context.Context, id int64) (*api.LegalDoc, error)

	// GetLegalDocByExternalID returns storage.ErrNotFound if no document
	// carries externalID.
	GetLegalDocByExternalID(ctx context.Context, externalID string) (*api.LegalDoc, error)

	// ListLegalDocs returns all documents ordered by ID.
	ListLegalDocs(ctx context.Context) ([]*api.LegalDoc, error)

	// SearchLegalDocs returns documents whose title contains title,
	// compared case-insensitively, ordered by ID.
	SearchLegalDocs(ctx context.Context, title string) ([]*api.LegalDoc, error)
}

// ChatHistoryStore persists question/answer exchanges.
type ChatHistoryStore interface {
	// SaveChat inserts c and fills in its ID and CreatedAt.
	SaveChat(ctx context.Context, c *api.ChatHistory) error

	// ListChatsByUser returns the exchanges owned by email, oldest first.
	ListChatsByUser(ctx context.Context, email string) ([]*api.ChatHistory, error)

	// ListChats returns every exchange, oldest first.
	ListChats(ctx context.Context) ([]*api.ChatHistory, error)
}

// Store is the full persistence contract of the backend.
type Store interface {
	UserStore
	LegalDocStore
	ChatHistoryStore

	// HealthCheck verifies the store connection is functional.
	HealthCheck(ctx context.Context) error

	// Close releases database connections and resources.
	Close() error
}
