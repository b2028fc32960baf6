package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"studioledger/internal/core"
	"studioledger/internal/store"
)

// Store keeps projects in a map guarded by a mutex. Callers always receive
// copies.
type Store struct {
	mu       sync.Mutex
	projects map[string]core.Project
	order    map[string]int
	seq      int
	now      func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		projects: make(map[string]core.Project),
		order:    make(map[string]int),
		now:      time.Now,
	}
}

// NewFromFile seeds the store with projects read from a JSON array. A
// missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if strings.TrimSpace(path) == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed []core.Project
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for _, p := range seed {
		if _, err := s.CreateProject(context.Background(), p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) ListProjects(_ context.Context) ([]core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.order[out[i].ID] > s.order[out[j].ID]
	})
	return out, nil
}

func (s *Store) GetProject(_ context.Context, id string) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return core.Project{}, fmt.Errorf("get %s: %w", id, store.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *Store) CreateProject(_ context.Context, p core.Project) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = store.PrepareNew(p, s.now())
	if _, exists := s.projects[p.ID]; exists {
		return core.Project{}, fmt.Errorf("project %s already exists", p.ID)
	}
	s.seq++
	s.order[p.ID] = s.seq
	s.projects[p.ID] = p
	return p.Clone(), nil
}

func (s *Store) UpdateProject(_ context.Context, id string, patch core.ProjectPatch) (core.Project, error) {
	return s.mutate(id, func(p core.Project) core.Project {
		return patch.Apply(p)
	})
}

func (s *Store) DeleteProject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
	}
	delete(s.projects, id)
	delete(s.order, id)
	return nil
}

func (s *Store) AppendPayment(_ context.Context, id string, pay core.Payment) (core.Project, error) {
	return s.mutate(id, func(p core.Project) core.Project {
		p.Payments = append(p.Payments, store.PreparePayment(pay))
		return p
	})
}

func (s *Store) AppendExpense(_ context.Context, id string, e core.Expense) (core.Project, error) {
	return s.mutate(id, func(p core.Project) core.Project {
		p.Expenses = append(p.Expenses, store.PrepareExpense(e))
		return p
	})
}

func (s *Store) AppendCategory(_ context.Context, id string, name string) (core.Project, bool, error) {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return core.Project{}, false, fmt.Errorf("append category to %s: %w", id, store.ErrNotFound)
	}
	if p.HasCategory(name) {
		return p.Clone(), false, nil
	}
	p = p.Clone()
	p.Categories = append(p.Categories, name)
	p.UpdatedAt = s.now().UTC()
	s.projects[id] = p
	return p.Clone(), true, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) mutate(id string, fn func(core.Project) core.Project) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return core.Project{}, fmt.Errorf("update %s: %w", id, store.ErrNotFound)
	}
	p = fn(p.Clone())
	p.UpdatedAt = s.now().UTC()
	s.projects[id] = p
	return p.Clone(), nil
}
