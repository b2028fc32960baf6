package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioledger/internal/core"
	"studioledger/internal/storage"
)

func seedDB(t *testing.T) (string, core.Project) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	repo, err := storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	p, err := repo.CreateProject(context.Background(), core.Project{
		CustomerName: "Mehta",
		Location:     "Pune",
		SquareFeet:   1200,
		QuotedPrice:  core.NewMoney(100000),
		Categories:   []string{"Furniture"},
	})
	require.NoError(t, err)
	_, err = repo.AppendExpense(context.Background(), p.ID, core.Expense{
		Category: "Furniture",
		Amount:   core.NewMoney(30000),
		Date:     core.NewDate(2024, 3, 2),
	})
	require.NoError(t, err)
	return path, p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestProjectsCommand(t *testing.T) {
	t.Setenv("STUDIOLEDGER_CONFIG", "")
	path, _ := seedDB(t)
	out, err := run(t, "projects", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Mehta")
	assert.Contains(t, out, "70%")
}

func TestProjectCommand(t *testing.T) {
	t.Setenv("STUDIOLEDGER_CONFIG", "")
	path, p := seedDB(t)
	out, err := run(t, "project", p.ID, "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "MEHTA")
	assert.Contains(t, out, "Furniture")

	_, err = run(t, "project", "missing", "--db", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no project with id "missing"`)
}

func TestSummaryCommand(t *testing.T) {
	t.Setenv("STUDIOLEDGER_CONFIG", "")
	path, _ := seedDB(t)
	out, err := run(t, "summary", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "PORTFOLIO SUMMARY")
	assert.Contains(t, out, "70.0%")
}

func TestMigrateAndVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")
	out, err := run(t, "migrate", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "dirty: false")

	out, err = run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ledgerctl dev")
}
