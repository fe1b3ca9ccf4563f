// Package storage provides utilities shared across storage adapter
// implementations.
//
// Storage adapters (memory, postgres) implement the transport.Store
// interface defined in pkg/transport/handler.go. This package contains
// only shared sentinel errors, not the interface itself.
package storage
