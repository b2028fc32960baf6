package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"studioledger/internal/core"
	"studioledger/internal/store"
)

func newProject(name string) core.Project {
	return core.Project{
		CustomerName: name,
		Location:     "Pune",
		SquareFeet:   900,
		QuotedPrice:  core.NewMoney(50000),
		Categories:   []string{"Painting", "AC", "Painting"},
	}
}

func TestCreateGetAndList(t *testing.T) {
	s := New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Hour) }

	ctx := context.Background()
	a, err := s.CreateProject(ctx, newProject("A"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == "" || a.CreatedAt.IsZero() {
		t.Fatalf("expected id and createdAt, got %+v", a)
	}
	if len(a.Categories) != 2 {
		t.Fatalf("expected deduped categories, got %v", a.Categories)
	}
	b, _ := s.CreateProject(ctx, newProject("B"))

	list, err := s.ListProjects(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("unexpected list: %v err=%v", list, err)
	}
	if list[0].ID != b.ID || list[1].ID != a.ID {
		t.Fatalf("expected newest first, got %s,%s", list[0].CustomerName, list[1].CustomerName)
	}

	got, err := s.GetProject(ctx, a.ID)
	if err != nil || got.CustomerName != "A" {
		t.Fatalf("unexpected get: %+v err=%v", got, err)
	}
}

func TestReturnedProjectsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	p, _ := s.CreateProject(ctx, newProject("A"))
	p.Categories[0] = "mutated"
	got, _ := s.GetProject(ctx, p.ID)
	if got.Categories[0] != "Painting" {
		t.Fatalf("store state leaked: %v", got.Categories)
	}
}

func TestAppends(t *testing.T) {
	s := New()
	ctx := context.Background()
	p, _ := s.CreateProject(ctx, newProject("A"))

	p, err := s.AppendPayment(ctx, p.ID, core.Payment{Amount: core.NewMoney(100), Date: core.NewDate(2025, 2, 1)})
	if err != nil || len(p.Payments) != 1 || p.Payments[0].ID == "" {
		t.Fatalf("unexpected payment append: %+v err=%v", p.Payments, err)
	}
	p, err = s.AppendExpense(ctx, p.ID, core.Expense{Category: "AC", Amount: core.NewMoney(40), Date: core.NewDate(2025, 2, 2)})
	if err != nil || len(p.Expenses) != 1 {
		t.Fatalf("unexpected expense append: %+v err=%v", p.Expenses, err)
	}

	p, added, err := s.AppendCategory(ctx, p.ID, "CNC")
	if err != nil || !added || len(p.Categories) != 3 {
		t.Fatalf("unexpected category append: %v added=%v err=%v", p.Categories, added, err)
	}
	p, added, err = s.AppendCategory(ctx, p.ID, "CNC")
	if err != nil || added || len(p.Categories) != 3 {
		t.Fatalf("category append should be idempotent: %v added=%v err=%v", p.Categories, added, err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	p, _ := s.CreateProject(ctx, newProject("A"))

	loc := "Mumbai"
	p, err := s.UpdateProject(ctx, p.ID, core.ProjectPatch{Location: &loc})
	if err != nil || p.Location != "Mumbai" || p.CustomerName != "A" {
		t.Fatalf("unexpected update: %+v err=%v", p, err)
	}

	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteProject(ctx, p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetProject(ctx, p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.AppendPayment(ctx, "missing", core.Payment{}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if list, _ := s.ListProjects(context.Background()); len(list) != 0 {
		t.Fatalf("expected empty store")
	}

	seed := `[{"customerName":"Seeded","location":"Goa","squareFeet":500,"quotedPrice":120000,
		"categories":["AC"],"payments":[{"amount":1000,"date":"2025-01-05"}]}]`
	path := filepath.Join(dir, "seed.json")
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	list, _ := s.ListProjects(context.Background())
	if len(list) != 1 || list[0].QuotedPrice != core.NewMoney(120000) || len(list[0].Payments) != 1 {
		t.Fatalf("unexpected seeded projects: %+v", list)
	}

	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFile(path); err == nil {
		t.Fatalf("expected decode error")
	}
}
