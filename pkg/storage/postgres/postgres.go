// Package postgres provides a PostgreSQL implementation of transport.Store.
// It uses pgx/v5 for connection pooling.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/simpla/backend/pkg/api"
	"github.com/simpla/backend/pkg/debug"
	"github.com/simpla/backend/pkg/storage"
	"github.com/simpla/backend/pkg/transport"
)

// Store is a PostgreSQL-backed Store.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Ensure Store implements transport.Store at compile time.
var _ transport.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool, logger: cfg.Logger}
	debug.Log(ctx, s.logger, debug.Storage, "connection pool ready",
		"max_conns", cfg.MaxConns,
		"min_conns", cfg.MinConns,
		"max_conn_lifetime", cfg.MaxConnLifetime,
	)

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// CreateUser inserts a new account.
func (s *Store) CreateUser(ctx context.Context, u *api.User) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, roles)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, u.Email, u.PasswordHash, u.Roles).Scan(&u.ID, &u.CreatedAt)

	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves an account by its normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*api.User, error) {
	var u api.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, roles, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Roles, &u.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

// legalDocColumns is the select list shared by every document query.
const legalDocColumns = `id, title, body, to_char(doc_date, 'YYYY-MM-DD'), source, external_id, created_at`

// CreateLegalDoc inserts a new document.
func (s *Store) CreateLegalDoc(ctx context.Context, d *api.LegalDoc) error {
	// Date travels as text and is cast server-side.
	err := s.pool.QueryRow(ctx, `
		INSERT INTO legal_docs (title, body, doc_date, source, external_id)
		VALUES ($1, $2, $3::text::date, $4, $5)
		RETURNING id, created_at
	`, d.Title, d.Body, nullString(d.Date), d.Source, nullString(d.ExternalID)).Scan(&d.ID, &d.CreatedAt)

	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting legal doc: %w", err)
	}
	return nil
}

// GetLegalDoc retrieves a document by ID.
func (s *Store) GetLegalDoc(ctx context.Context, id int64) (*api.LegalDoc, error) {
	return s.getLegalDoc(ctx, "id = $1", id)
}

// GetLegalDocByExternalID retrieves a document by its upstream identifier.
func (s *Store) GetLegalDocByExternalID(ctx context.Context, externalID string) (*api.LegalDoc, error) {
	if externalID == "" {
		return nil, storage.ErrNotFound
	}
	return s.getLegalDoc(ctx, "external_id = $1", externalID)
}

func (s *Store) getLegalDoc(ctx context.Context, where string, arg any) (*api.LegalDoc, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+legalDocColumns+" FROM legal_docs WHERE "+where, arg)
	d, err := scanLegalDoc(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying legal doc: %w", err)
	}
	return d, nil
}

// ListLegalDocs returns all documents ordered by ID.
func (s *Store) ListLegalDocs(ctx context.Context) ([]*api.LegalDoc, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+legalDocColumns+" FROM legal_docs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing legal docs: %w", err)
	}
	return collectLegalDocs(rows)
}

// SearchLegalDocs returns documents whose title contains title, ignoring
// case. strpos avoids having to escape LIKE wildcards in user input.
func (s *Store) SearchLegalDocs(ctx context.Context, title string) ([]*api.LegalDoc, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+legalDocColumns+" FROM legal_docs WHERE strpos(lower(title), lower($1)) > 0 ORDER BY id",
		title,
	)
	if err != nil {
		return nil, fmt.Errorf("searching legal docs: %w", err)
	}
	docs, err := collectLegalDocs(rows)
	if err != nil {
		return nil, err
	}
	debug.Log(ctx, s.logger, debug.Storage, "title search", "matches", len(docs))
	return docs, nil
}

// SaveChat inserts a question/answer exchange.
func (s *Store) SaveChat(ctx context.Context, c *api.ChatHistory) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO chat_history (user_email, question, answer)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, c.UserEmail, c.Question, c.Answer).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting chat: %w", err)
	}
	return nil
}

// ListChatsByUser returns the exchanges owned by email, oldest first.
func (s *Store) ListChatsByUser(ctx context.Context, email string) ([]*api.ChatHistory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_email, question, answer, created_at
		FROM chat_history
		WHERE user_email = $1
		ORDER BY id
	`, email)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	return collectChats(rows)
}

// ListChats returns every exchange, oldest first.
func (s *Store) ListChats(ctx context.Context) ([]*api.ChatHistory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_email, question, answer, created_at
		FROM chat_history
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	return collectChats(rows)
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanLegalDoc(row pgx.Row) (*api.LegalDoc, error) {
	var d api.LegalDoc
	var date, externalID *string
	if err := row.Scan(&d.ID, &d.Title, &d.Body, &date, &d.Source, &externalID, &d.CreatedAt); err != nil {
		return nil, err
	}
	if date != nil {
		d.Date = *date
	}
	if externalID != nil {
		d.ExternalID = *externalID
	}
	return &d, nil
}

func collectLegalDocs(rows pgx.Rows) ([]*api.LegalDoc, error) {
	defer rows.Close()

	out := make([]*api.LegalDoc, 0)
	for rows.Next() {
		d, err := scanLegalDoc(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning legal doc: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating legal docs: %w", err)
	}
	return out, nil
}

func collectChats(rows pgx.Rows) ([]*api.ChatHistory, error) {
	defer rows.Close()

	out := make([]*api.ChatHistory, 0)
	for rows.Next() {
		var c api.ChatHistory
		if err := rows.Scan(&c.ID, &c.UserEmail, &c.Question, &c.Answer, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chats: %w", err)
	}
	return out, nil
}

// nullString maps the empty string to SQL NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isDuplicateKey reports a unique constraint violation (SQLSTATE 23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
