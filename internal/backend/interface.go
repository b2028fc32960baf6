// Package backend opens the project store chosen by DATA_BACKEND.
package backend

import (
	"context"

	"studioledger/internal/store"
)

type Backend interface {
	store.Store
}

// Pinger is implemented by backends with a connection worth checking.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CleanupFunc releases whatever the backend holds open. The memory backend
// has none.
type CleanupFunc func() error

type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error)
}

// Config carries the settings of every backend; only those of Type are read.
type Config struct {
	Type BackendType

	SQLiteDBPath string

	MongoURI      string
	MongoDatabase string

	// SeedFile optionally preloads the memory backend from JSON.
	SeedFile string
}

type BackendType string

const (
	SQLiteBackend  BackendType = "sqlite"
	MongoDBBackend BackendType = "mongodb"
	MemoryBackend  BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MongoDBBackend, MemoryBackend:
		return true
	}
	return false
}
