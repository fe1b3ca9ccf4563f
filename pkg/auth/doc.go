// Package auth attaches a per-request security context to every HTTP
// request and provides the authorization guards route handlers use.
//
// Authentication runs as HTTP middleware in front of the router. An
// Authenticator votes Yes (identity found), No (credentials invalid), or
// Abstain (no credentials). Only Yes attaches an identity; No and Abstain
// leave the request anonymous. The middleware never rejects a request and
// always forwards it, so every accept/deny decision belongs to the guards
// (RequireAuthenticated, RequireRole) or to the handlers themselves.
package auth
