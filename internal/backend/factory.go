package backend

import (
	"context"
	"fmt"
	"time"

	"studioledger/internal/log"
	"studioledger/internal/storage"
	"studioledger/internal/store/memory"
	"studioledger/internal/store/mongodb"
)

const connectTimeout = 10 * time.Second

type factory struct {
	logger *log.Logger
}

// NewFactory returns a Factory that logs through logger, or a default
// logger when nil.
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend validates cfg and opens the backend it names. SQLite runs
// its migrations on open.
func (f *factory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case SQLiteBackend:
		return f.openSQLite(cfg)
	case MongoDBBackend:
		return f.openMongo(ctx, cfg)
	default:
		return f.openMemory(cfg)
	}
}

func (f *factory) openSQLite(cfg Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLiteDBPath, err)
	}

	version, dirty, err := repo.SchemaVersion()
	if err != nil {
		f.logger.Warn("Could not read schema version", log.FieldError, err)
	}
	f.logger.Info("Initialized SQLite backend",
		"db_path", cfg.SQLiteDBPath,
		"schema_version", version,
		"schema_dirty", dirty)

	return &BackendResult{Backend: repo, Cleanup: repo.Close}, nil
}

func (f *factory) openMongo(ctx context.Context, cfg Config) (*BackendResult, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	st, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	f.logger.Info("Initialized MongoDB backend", "database", cfg.MongoDatabase)
	return &BackendResult{Backend: st, Cleanup: st.Close}, nil
}

func (f *factory) openMemory(cfg Config) (*BackendResult, error) {
	if cfg.SeedFile == "" {
		f.logger.Info("Initialized memory backend")
		return &BackendResult{Backend: memory.New()}, nil
	}

	st, err := memory.NewFromFile(cfg.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("load seed file: %w", err)
	}
	f.logger.Info("Initialized memory backend", "seed_file", cfg.SeedFile)
	return &BackendResult{Backend: st}, nil
}
