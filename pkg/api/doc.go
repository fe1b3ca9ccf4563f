// Package api defines the wire types of the simpla backend: user accounts,
// legal documents, chat history records, login/registration payloads, and
// the structured error envelope shared by every endpoint.
//
// The package performs no I/O. Storage adapters and HTTP handlers exchange
// these types; JSON field names are part of the public contract.
//
// Core types:
//   - [User]: a registered account with its bcrypt hash and role set
//   - [LegalDoc]: a legal document (norma) with optional external identifier
//   - [ChatHistory]: one question/answer exchange owned by a user
//   - [APIError]: structured error with type, code, param, and message
package api
