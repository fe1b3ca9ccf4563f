package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simpla/backend/pkg/account"
	"github.com/simpla/backend/pkg/api"
	"github.com/simpla/backend/pkg/auth"
	"github.com/simpla/backend/pkg/observability"
	"github.com/simpla/backend/pkg/storage"
	"github.com/simpla/backend/pkg/transport"
)

// invalidCredentials is the fixed body of every rejected login.
const invalidCredentials = "Invalid credentials"

// Adapter serves the simpla REST API over HTTP.
// It routes requests to the appropriate handler and serializes responses.
type Adapter struct {
	store      transport.Store
	accounts   *account.Service
	authn      auth.Authenticator
	mux        *http.ServeMux
	config     Config
	logger     *slog.Logger
	validation api.ValidationConfig
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64

	// MetricsPath exposes Prometheus metrics when non-empty.
	MetricsPath string

	Logger *slog.Logger
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
		MetricsPath: "/metrics",
	}
}

// NewAdapter creates an HTTP adapter. authn resolves the caller of every
// request; accounts handles register and login.
func NewAdapter(store transport.Store, accounts *account.Service, authn auth.Authenticator, cfg Config) *Adapter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a := &Adapter{
		store:      store,
		accounts:   accounts,
		authn:      authn,
		mux:        http.NewServeMux(),
		config:     cfg,
		logger:     cfg.Logger,
		validation: api.DefaultValidationConfig(),
	}

	admin := auth.RequireRole(api.RoleAdmin)

	a.mux.HandleFunc("POST /api/auth/register", a.handleRegister)
	a.mux.HandleFunc("POST /api/auth/login", a.handleLogin)
	a.mux.HandleFunc("GET /api/auth/me", a.handleMe)

	a.mux.HandleFunc("GET /api/docs", a.handleListDocs)
	a.mux.HandleFunc("GET /api/docs/search", a.handleSearchDocs)
	a.mux.HandleFunc("GET /api/docs/external/{externalId}", a.handleGetDocByExternalID)
	a.mux.HandleFunc("GET /api/docs/{id}", a.handleGetDoc)
	a.mux.Handle("POST /api/docs", admin(http.HandlerFunc(a.handleCreateDoc)))

	a.mux.Handle("POST /api/chat", auth.RequireAuthenticated(http.HandlerFunc(a.handleCreateChat)))
	a.mux.Handle("GET /api/chat", admin(http.HandlerFunc(a.handleListChats)))
	a.mux.Handle("GET /api/chat/user/{email}", auth.RequireAuthenticated(http.HandlerFunc(a.handleListUserChats)))

	a.mux.HandleFunc("GET /healthz", a.handleHealth)
	if cfg.MetricsPath != "" {
		a.mux.Handle("GET "+cfg.MetricsPath, promhttp.Handler())
	}

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		transport.WriteAPIError(w, api.NewNotFoundError("no route for "+r.Method+" "+r.URL.Path))
	})

	return a
}

// Handler returns the http.Handler for this adapter, wrapped in the
// middleware chain. Authentication is innermost so that the request ID and
// recovery cover it; it runs exactly once for every path.
func (a *Adapter) Handler() http.Handler {
	return transport.Chain(
		transport.RequestID(),
		transport.Logging(a.logger),
		transport.Recovery(a.logger),
		observability.MetricsMiddleware,
		auth.Middleware(a.authn, a.logger),
	)(a.mux)
}

// handleRegister handles POST /api/auth/register.
func (a *Adapter) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if !a.decodeJSON(w, r, &creds) {
		return
	}

	_, err := a.accounts.Register(r.Context(), creds.Email, creds.Password)
	if err != nil {
		var apiErr *api.APIError
		switch {
		case errors.As(err, &apiErr):
			transport.WriteAPIError(w, apiErr)
		case errors.Is(err, account.ErrEmailTaken):
			transport.WriteAPIError(w, api.NewConflictError("email", "email is already registered"))
		default:
			a.writeInternalError(w, r, "registration failed", err)
		}
		return
	}

	transport.WriteJSON(w, http.StatusOK, api.MessageResponse{Message: "User registered"})
}

// handleLogin handles POST /api/auth/login. Every credential failure has
// the same status and body.
func (a *Adapter) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if !a.decodeJSON(w, r, &creds) {
		return
	}

	result, err := a.accounts.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrInvalidCredentials):
			transport.WriteJSON(w, http.StatusUnauthorized, api.LoginFailure{Error: invalidCredentials})
		case errors.Is(err, auth.ErrTooManyRequests):
			w.Header().Set("Retry-After", "60")
			transport.WriteAPIError(w, api.NewTooManyRequestsError("too many login attempts, retry later"))
		default:
			a.writeInternalError(w, r, "login failed", err)
		}
		return
	}

	transport.WriteJSON(w, http.StatusOK, api.LoginResponse{Token: result.Token})
}

// handleMe handles GET /api/auth/me. Anonymous callers get
// {"authenticated": false} rather than an error.
func (a *Adapter) handleMe(w http.ResponseWriter, r *http.Request) {
	principal := api.Principal{}
	if id := auth.IdentityFromContext(r.Context()); id != nil {
		principal.Authenticated = true
		principal.Email = id.Subject
		principal.Roles = id.Roles
	}
	transport.WriteJSON(w, http.StatusOK, principal)
}

// handleListDocs handles GET /api/docs.
func (a *Adapter) handleListDocs(w http.ResponseWriter, r *http.Request) {
	docs, err := a.store.ListLegalDocs(r.Context())
	if err != nil {
		a.writeInternalError(w, r, "listing documents failed", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, docs)
}

// handleSearchDocs handles GET /api/docs/search?title=.
func (a *Adapter) handleSearchDocs(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		transport.WriteAPIError(w, api.NewInvalidRequestError("title", "title query parameter is required"))
		return
	}

	docs, err := a.store.SearchLegalDocs(r.Context(), title)
	if err != nil {
		a.writeInternalError(w, r, "searching documents failed", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, docs)
}

// handleGetDoc handles GET /api/docs/{id}.
func (a *Adapter) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		transport.WriteAPIError(w, api.NewInvalidRequestError("id", "document ID must be a positive integer"))
		return
	}

	doc, err := a.store.GetLegalDoc(r.Context(), id)
	if err != nil {
		a.writeLookupError(w, r, err, fmt.Sprintf("document %d not found", id))
		return
	}
	transport.WriteJSON(w, http.StatusOK, doc)
}

// handleGetDocByExternalID handles GET /api/docs/external/{externalId}.
func (a *Adapter) handleGetDocByExternalID(w http.ResponseWriter, r *http.Request) {
	externalID := r.PathValue("externalId")

	doc, err := a.store.GetLegalDocByExternalID(r.Context(), externalID)
	if err != nil {
		a.writeLookupError(w, r, err, "document "+externalID+" not found")
		return
	}
	transport.WriteJSON(w, http.StatusOK, doc)
}

// handleCreateDoc handles POST /api/docs. Only admins reach it.
func (a *Adapter) handleCreateDoc(w http.ResponseWriter, r *http.Request) {
	var in api.LegalDoc
	if !a.decodeJSON(w, r, &in) {
		return
	}

	// ID and CreatedAt are server-assigned.
	doc := &api.LegalDoc{
		Title:      strings.TrimSpace(in.Title),
		Body:       in.Body,
		Date:       in.Date,
		Source:     in.Source,
		ExternalID: strings.TrimSpace(in.ExternalID),
	}
	if apiErr := api.ValidateLegalDoc(doc, a.validation); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	if err := a.store.CreateLegalDoc(r.Context(), doc); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			transport.WriteAPIError(w, api.NewConflictError("external_id", "a document with this external ID already exists"))
			return
		}
		a.writeInternalError(w, r, "creating document failed", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, doc)
}

// handleCreateChat handles POST /api/chat. The owner is always the caller.
func (a *Adapter) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req api.CreateChatRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	if apiErr := api.ValidateChat(&req, a.validation); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	chat := &api.ChatHistory{
		UserEmail: auth.IdentityFromContext(r.Context()).Subject,
		Question:  req.Question,
		Answer:    req.Answer,
	}
	if err := a.store.SaveChat(r.Context(), chat); err != nil {
		a.writeInternalError(w, r, "saving chat failed", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, chat)
}

// handleListUserChats handles GET /api/chat/user/{email}. Callers see their
// own history; admins see anyone's.
func (a *Adapter) handleListUserChats(w http.ResponseWriter, r *http.Request) {
	email := api.NormalizeEmail(r.PathValue("email"))
	caller := auth.IdentityFromContext(r.Context())
	if caller.Subject != email && !caller.HasRole(api.RoleAdmin) {
		transport.WriteAPIError(w, api.NewForbiddenError("cannot read another user's chat history"))
		return
	}

	chats, err := a.store.ListChatsByUser(r.Context(), email)
	if err != nil {
		a.writeInternalError(w, r, "listing chats failed", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, chats)
}

// handleListChats handles GET /api/chat. Only admins reach it.
func (a *Adapter) handleListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := a.store.ListChats(r.Context())
	if err != nil {
		a.writeInternalError(w, r, "listing chats failed", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, chats)
}

// handleHealth handles GET /healthz.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.store.HealthCheck(r.Context()); err != nil {
		a.logger.Warn("health check failed", "error", err)
		transport.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON reads a size-limited JSON body into v. On failure it writes
// the error response and returns false.
func (a *Adapter) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "application/json") {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		transport.WriteAPIError(w, api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()))
		return false
	}
	return true
}

// writeLookupError maps storage.ErrNotFound to 404 and anything else to 500.
func (a *Adapter) writeLookupError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	if errors.Is(err, storage.ErrNotFound) {
		transport.WriteAPIError(w, api.NewNotFoundError(notFoundMsg))
		return
	}
	a.writeInternalError(w, r, "lookup failed", err)
}

// writeInternalError logs err and writes a generic 500. Store errors may
// carry connection details, so they are never echoed to the client.
func (a *Adapter) writeInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	a.logger.Error(msg,
		"request_id", transport.RequestIDFromContext(r.Context()),
		"error", err,
	)
	transport.WriteAPIError(w, api.NewServerError("internal server error"))
}
