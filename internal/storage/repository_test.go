package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"studioledger/internal/core"
	"studioledger/internal/store"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "ledger.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func sampleProject(name string) core.Project {
	return core.Project{
		CustomerName: name,
		Location:     "Bengaluru",
		SquareFeet:   1450.5,
		QuotedPrice:  core.NewMoney(100000),
		Categories:   []string{"Electrical", "Painting", "Electrical"},
	}
}

func TestCreateAndGet(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateProject(ctx, sampleProject("Iyer"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.GetProject(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CustomerName != "Iyer" || got.SquareFeet != 1450.5 || got.QuotedPrice != core.NewMoney(100000) {
		t.Fatalf("unexpected project: %+v", got)
	}
	if len(got.Categories) != 2 || got.Categories[0] != "Electrical" || got.Categories[1] != "Painting" {
		t.Fatalf("unexpected categories: %v", got.Categories)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("createdAt mismatch: %v vs %v", got.CreatedAt, created.CreatedAt)
	}
	if got.Payments == nil || got.Expenses == nil {
		t.Fatalf("expected empty, non-nil ledgers")
	}

	if _, err := repo.GetProject(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	a, _ := repo.CreateProject(ctx, sampleProject("A"))
	b, _ := repo.CreateProject(ctx, sampleProject("B"))
	if _, err := repo.AppendExpense(ctx, a.ID, core.Expense{Category: "Painting", Amount: core.NewMoney(10), Date: core.NewDate(2025, 3, 2)}); err != nil {
		t.Fatalf("append expense: %v", err)
	}

	list, err := repo.ListProjects(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != b.ID || list[1].ID != a.ID {
		t.Fatalf("expected [B A], got %v", list)
	}
	if len(list[1].Expenses) != 1 || len(list[0].Expenses) != 0 {
		t.Fatalf("children routed to wrong project: %+v", list)
	}
}

func TestAppendsKeepOrderAndPersist(t *testing.T) {
	repo, path := newTestRepo(t)
	ctx := context.Background()
	p, _ := repo.CreateProject(ctx, sampleProject("Rao"))

	for i, amt := range []int64{40000, 25000, 5000} {
		_, err := repo.AppendPayment(ctx, p.ID, core.Payment{
			Amount: core.NewMoney(amt),
			Date:   core.NewDate(2025, 1, i+1),
			Note:   "installment",
		})
		if err != nil {
			t.Fatalf("append payment %d: %v", i, err)
		}
	}
	if _, err := repo.AppendExpense(ctx, p.ID, core.Expense{Category: "Electrical", Amount: core.Money{Cents: 2000050}, Date: core.NewDate(2025, 1, 4)}); err != nil {
		t.Fatalf("append expense: %v", err)
	}
	p, added, err := repo.AppendCategory(ctx, p.ID, "CNC")
	if err != nil || !added || len(p.Categories) != 3 || p.Categories[2] != "CNC" {
		t.Fatalf("append category: %v added=%v err=%v", p.Categories, added, err)
	}
	before := p.UpdatedAt
	p, added, err = repo.AppendCategory(ctx, p.ID, "Painting")
	if err != nil || added || len(p.Categories) != 3 {
		t.Fatalf("category append should be idempotent: %v added=%v err=%v", p.Categories, added, err)
	}
	if !p.UpdatedAt.Equal(before) {
		t.Fatalf("no-op category append touched updated_at")
	}
	if _, err := repo.AppendPayment(ctx, "missing", core.Payment{Amount: core.NewMoney(1), Date: core.NewDate(2025, 1, 1)}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	repo.Close()
	reopened, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if len(got.Payments) != 3 || got.Payments[0].Amount != core.NewMoney(40000) || got.Payments[2].Date.String() != "2025-01-03" {
		t.Fatalf("unexpected payments: %+v", got.Payments)
	}
	if got.Payments[1].Note != "installment" || got.Payments[1].ID == "" {
		t.Fatalf("payment fields lost: %+v", got.Payments[1])
	}
	if len(got.Expenses) != 1 || got.Expenses[0].Amount.Cents != 2000050 {
		t.Fatalf("unexpected expenses: %+v", got.Expenses)
	}
}

func TestUpdateProject(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	p, _ := repo.CreateProject(ctx, sampleProject("Das"))

	quoted := core.NewMoney(150000)
	cats := []string{"AC", "Mesh", "AC"}
	updated, err := repo.UpdateProject(ctx, p.ID, core.ProjectPatch{QuotedPrice: &quoted, Categories: &cats})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.QuotedPrice != quoted || updated.CustomerName != "Das" {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	got, _ := repo.GetProject(ctx, p.ID)
	if len(got.Categories) != 2 || got.Categories[0] != "AC" || got.Categories[1] != "Mesh" {
		t.Fatalf("unexpected categories after update: %v", got.Categories)
	}

	if _, err := repo.UpdateProject(ctx, "missing", core.ProjectPatch{QuotedPrice: &quoted}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	p, _ := repo.CreateProject(ctx, sampleProject("Nair"))
	if _, err := repo.AppendPayment(ctx, p.ID, core.Payment{Amount: core.NewMoney(10), Date: core.NewDate(2025, 1, 1)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := repo.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteProject(ctx, p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	var n int
	if err := repo.db.QueryRow(`SELECT COUNT(*) FROM payments`).Scan(&n); err != nil || n != 0 {
		t.Fatalf("expected payments to cascade, count=%d err=%v", n, err)
	}
}

func TestSchemaVersion(t *testing.T) {
	repo, _ := newTestRepo(t)
	v, dirty, err := repo.SchemaVersion()
	if err != nil || v != 1 || dirty {
		t.Fatalf("unexpected schema version %d dirty=%v err=%v", v, dirty, err)
	}
}
