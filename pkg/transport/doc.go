// Package transport defines the store interfaces and HTTP middleware chain
// shared by the simpla HTTP adapter.
//
// # Store Interfaces
//
// Three interfaces define the contract between the HTTP layer and
// persistence:
//
//   - UserStore creates and looks up accounts by email.
//   - LegalDocStore creates, lists, searches, and fetches legal documents.
//   - ChatHistoryStore records and lists question/answer exchanges.
//
// Store combines all three with lifecycle methods. Both pkg/storage/memory
// and pkg/storage/postgres implement it.
//
// # Middleware
//
// Middleware wraps an http.Handler with cross-cutting concerns. Built-in
// middleware provides panic recovery, request ID assignment (X-Request-ID),
// and structured logging via log/slog. Authentication lives in pkg/auth and
// composes with Chain like any other middleware.
package transport
