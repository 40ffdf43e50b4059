// Package backend selects and builds the storage backend from configuration.
package backend

import (
	"context"

	"fintrack/internal/storage"
)

// CleanupFunc releases backend resources
type CleanupFunc func() error

// BackendResult contains the backend instance and its cleanup function
type BackendResult struct {
	Backend storage.Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// PostgreSQL specific
	DatabaseURL string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
