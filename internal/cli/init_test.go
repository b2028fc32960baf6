package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggerReadsEnvironment(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	logger := SetupLogger("worker")

	assert.Equal(t, "worker", logger.Component())
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.Same(t, logger.Logger, slog.Default())

	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, "app", SetupLogger("").Component())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LEDGER_TEST_VALUE=from-dotenv\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("LEDGER_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("LEDGER_TEST_VALUE"))

	LoadEnvFile()
	assert.Equal(t, "from-dotenv", os.Getenv("LEDGER_TEST_VALUE"))
}
