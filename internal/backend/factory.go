package backend

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLBackend(ctx, storage.DriverSQLite, config.SQLiteDBPath, "db_path", config.SQLiteDBPath)
	case PostgresBackend:
		// the DSN may carry credentials, so it is not logged
		return f.createSQLBackend(ctx, storage.DriverPostgres, config.DatabaseURL)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLBackend(ctx context.Context, driver, dsn string, logArgs ...any) (*BackendResult, error) {
	store, err := storage.NewSQLStore(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", driver, err)
	}

	f.logger.Info("Initialized SQL backend", append([]any{"driver", driver}, logArgs...)...)

	return &BackendResult{
		Backend: store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	store := storage.NewMemoryStore()

	f.logger.Info("Initialized memory backend")

	return &BackendResult{
		Backend: store,
		Cleanup: store.Close,
	}, nil
}
