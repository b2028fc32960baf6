package backend

import (
	"errors"
	"fmt"
	"strings"

	"studioledger/internal/config"
)

// FromAppConfig picks the storage settings out of the application config.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, errors.New("app config is nil")
	}
	t := BackendType(app.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("unknown data backend %q (want one of %s)",
			app.DataBackend, strings.Join(GetBackendTypeStrings(), ", "))
	}
	return Config{
		Type:          t,
		SQLiteDBPath:  app.SQLiteDBPath,
		MongoURI:      app.MongoURI,
		MongoDatabase: app.MongoDatabase,
		SeedFile:      app.MemorySeedFile,
	}, nil
}

// Validate checks that the settings the chosen backend needs are present.
// The memory backend needs none; its seed file is optional.
func (c Config) Validate() error {
	var missing []string
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			missing = append(missing, "sqlite path")
		}
	case MongoDBBackend:
		if c.MongoURI == "" {
			missing = append(missing, "mongodb uri")
		}
		if c.MongoDatabase == "" {
			missing = append(missing, "mongodb database")
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("invalid backend type: %q", c.Type)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s backend: missing %s", c.Type, strings.Join(missing, " and "))
	}
	return nil
}

func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MongoDBBackend, MemoryBackend}
}

func GetBackendTypeStrings() []string {
	out := make([]string, 0, 3)
	for _, t := range GetBackendTypes() {
		out = append(out, t.String())
	}
	return out
}
