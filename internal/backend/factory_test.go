package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioledger/internal/config"
	"studioledger/internal/core"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"mongodb", Config{Type: MongoDBBackend, MongoURI: "mongodb://localhost", MongoDatabase: "db"}, false},
		{"mongodb without uri", Config{Type: MongoDBBackend, MongoDatabase: "db"}, true},
		{"mongodb without database", Config{Type: MongoDBBackend, MongoURI: "mongodb://localhost"}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	require.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "postgres"})
	require.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:    "memory",
		MemorySeedFile: "seed.json",
		SQLiteDBPath:   "db.sqlite",
	})
	require.NoError(t, err)
	assert.Equal(t, MemoryBackend, cfg.Type)
	assert.Equal(t, "seed.json", cfg.SeedFile)
	assert.Equal(t, "db.sqlite", cfg.SQLiteDBPath)
}

func TestGetBackendTypeStrings(t *testing.T) {
	assert.Equal(t, []string{"sqlite", "mongodb", "memory"}, GetBackendTypeStrings())
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)
	assert.Nil(t, res.Cleanup)

	projects, err := res.Backend.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestCreateMemoryBackendFromSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	seed := `[{"id":"p1","customerName":"Mehta","location":"Pune","squareFeet":1200,"quotedPrice":250000,"categories":["Furniture"]}]`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedFile: path})
	require.NoError(t, err)

	p, err := res.Backend.GetProject(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Mehta", p.CustomerName)
	assert.Equal(t, core.NewMoney(250000), p.QuotedPrice)
}

func TestCreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	require.NotNil(t, res.Cleanup)
	defer res.Cleanup()

	pinger, ok := res.Backend.(Pinger)
	require.True(t, ok)
	assert.NoError(t, pinger.Ping(context.Background()))
}

func TestCreateBackendInvalid(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: "sheets"})
	assert.Error(t, err)
}
