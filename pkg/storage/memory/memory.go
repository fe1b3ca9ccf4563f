// Package memory provides an in-memory implementation of transport.Store
// for testing and lightweight deployments. Records are lost when the
// process restarts.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/simpla/backend/pkg/api"
	"github.com/simpla/backend/pkg/storage"
	"github.com/simpla/backend/pkg/transport"
)

// Store is an in-memory Store. All returned records are copies.
type Store struct {
	mu sync.RWMutex

	users map[string]*api.User // keyed by email

	// Per-table sequences, like BIGSERIAL.
	userSeq, docSeq, chatSeq int64

	docs        []*api.LegalDoc // ordered by ID
	docsByID    map[int64]*api.LegalDoc
	docsByExtID map[string]*api.LegalDoc

	chats []*api.ChatHistory // ordered by ID

	now func() time.Time
}

// Ensure Store implements transport.Store at compile time.
var _ transport.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:       make(map[string]*api.User),
		docsByID:    make(map[int64]*api.LegalDoc),
		docsByExtID: make(map[string]*api.LegalDoc),
		now:         time.Now,
	}
}

// CreateUser stores u, keyed by its email.
func (s *Store) CreateUser(_ context.Context, u *api.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.Email]; exists {
		return storage.ErrConflict
	}

	s.userSeq++
	u.ID = s.userSeq
	u.CreatedAt = s.now().UTC()
	s.users[u.Email] = cloneUser(u)
	return nil
}

// GetUserByEmail returns the account registered under email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneUser(u), nil
}

// CreateLegalDoc stores d. A non-empty ExternalID must be unique.
func (s *Store) CreateLegalDoc(_ context.Context, d *api.LegalDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ExternalID != "" {
		if _, exists := s.docsByExtID[d.ExternalID]; exists {
			return storage.ErrConflict
		}
	}

	s.docSeq++
	d.ID = s.docSeq
	d.CreatedAt = s.now().UTC()
	stored := cloneDoc(d)
	s.docs = append(s.docs, stored)
	s.docsByID[stored.ID] = stored
	if stored.ExternalID != "" {
		s.docsByExtID[stored.ExternalID] = stored
	}
	return nil
}

// GetLegalDoc returns the document with id.
func (s *Store) GetLegalDoc(_ context.Context, id int64) (*api.LegalDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docsByID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneDoc(d), nil
}

// GetLegalDocByExternalID returns the document carrying externalID.
func (s *Store) GetLegalDocByExternalID(_ context.Context, externalID string) (*api.LegalDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docsByExtID[externalID]
	if !ok || externalID == "" {
		return nil, storage.ErrNotFound
	}
	return cloneDoc(d), nil
}

// ListLegalDocs returns every document ordered by ID.
func (s *Store) ListLegalDocs(_ context.Context) ([]*api.LegalDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*api.LegalDoc, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, cloneDoc(d))
	}
	return out, nil
}

// SearchLegalDocs returns documents whose title contains title, ignoring case.
func (s *Store) SearchLegalDocs(_ context.Context, title string) ([]*api.LegalDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(title)
	out := make([]*api.LegalDoc, 0)
	for _, d := range s.docs {
		if strings.Contains(strings.ToLower(d.Title), needle) {
			out = append(out, cloneDoc(d))
		}
	}
	return out, nil
}

// SaveChat stores c.
func (s *Store) SaveChat(_ context.Context, c *api.ChatHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chatSeq++
	c.ID = s.chatSeq
	c.CreatedAt = s.now().UTC()
	stored := *c
	s.chats = append(s.chats, &stored)
	return nil
}

// ListChatsByUser returns the exchanges owned by email, oldest first.
func (s *Store) ListChatsByUser(_ context.Context, email string) ([]*api.ChatHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*api.ChatHistory, 0)
	for _, c := range s.chats {
		if c.UserEmail == email {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListChats returns every exchange, oldest first.
func (s *Store) ListChats(_ context.Context) ([]*api.ChatHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*api.ChatHistory, 0, len(s.chats))
	for _, c := range s.chats {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func cloneUser(u *api.User) *api.User {
	cp := *u
	cp.Roles = slices.Clone(u.Roles)
	return &cp
}

func cloneDoc(d *api.LegalDoc) *api.LegalDoc {
	cp := *d
	return &cp
}
