package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"studioledger/internal/amqp"
	"studioledger/internal/core"
	"studioledger/internal/finance"
	"studioledger/internal/store"
)

// ErrValidation wraps every input rejection so callers can map it to a
// client error without listing each core sentinel.
var ErrValidation = errors.New("validation failed")

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.ProjectEvent) error
}

// ProjectService validates mutations, delegates them to the store and
// announces them on the event bus.
type ProjectService struct {
	store             store.Store
	events            EventPublisher
	defaultCategories []string
}

// NewProjectService wires a store and an optional publisher. A nil
// publisher disables events.
func NewProjectService(st store.Store, events EventPublisher, defaultCategories []string) *ProjectService {
	if len(defaultCategories) == 0 {
		defaultCategories = core.DefaultCategories
	}
	return &ProjectService{
		store:             st,
		events:            events,
		defaultCategories: core.NormalizeCategories(defaultCategories),
	}
}

func (s *ProjectService) ListProjects(ctx context.Context) ([]core.Project, error) {
	return s.store.ListProjects(ctx)
}

func (s *ProjectService) GetProject(ctx context.Context, id string) (core.Project, error) {
	return s.store.GetProject(ctx, id)
}

// CreateProject validates the form, seeds default categories when none
// were given and stores the project.
func (s *ProjectService) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	p.CustomerName = strings.TrimSpace(p.CustomerName)
	p.Location = strings.TrimSpace(p.Location)
	if err := p.Validate(); err != nil {
		return core.Project{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	for _, pay := range p.Payments {
		if err := pay.Validate(); err != nil {
			return core.Project{}, fmt.Errorf("%w: payment: %w", ErrValidation, err)
		}
	}
	for _, e := range p.Expenses {
		if err := e.Validate(); err != nil {
			return core.Project{}, fmt.Errorf("%w: expense: %w", ErrValidation, err)
		}
	}
	p.Categories = core.NormalizeCategories(p.Categories)
	if len(p.Categories) == 0 {
		p.Categories = append([]string(nil), s.defaultCategories...)
	}

	created, err := s.store.CreateProject(ctx, p)
	if err != nil {
		return core.Project{}, fmt.Errorf("create project: %w", err)
	}
	s.publish(ctx, amqp.EventProjectCreated, created.ID)
	return created, nil
}

// UpdateProject applies a partial update. An empty patch returns the
// project unchanged.
func (s *ProjectService) UpdateProject(ctx context.Context, id string, patch core.ProjectPatch) (core.Project, error) {
	if err := patch.Validate(); err != nil {
		return core.Project{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if patch.IsEmpty() {
		return s.store.GetProject(ctx, id)
	}
	updated, err := s.store.UpdateProject(ctx, id, patch)
	if err != nil {
		return core.Project{}, fmt.Errorf("update project: %w", err)
	}
	s.publish(ctx, amqp.EventProjectUpdated, id)
	return updated, nil
}

func (s *ProjectService) DeleteProject(ctx context.Context, id string) error {
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	s.publish(ctx, amqp.EventProjectDeleted, id)
	return nil
}

func (s *ProjectService) AddPayment(ctx context.Context, id string, pay core.Payment) (core.Project, error) {
	pay.Note = strings.TrimSpace(pay.Note)
	if err := pay.Validate(); err != nil {
		return core.Project{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	p, err := s.store.AppendPayment(ctx, id, pay)
	if err != nil {
		return core.Project{}, fmt.Errorf("add payment: %w", err)
	}
	s.publish(ctx, amqp.EventPaymentAdded, id)
	return p, nil
}

// AddExpense records an expense. Categories outside the project's taxonomy
// are accepted and logged.
func (s *ProjectService) AddExpense(ctx context.Context, id string, e core.Expense) (core.Project, error) {
	e.Category = strings.TrimSpace(e.Category)
	e.Note = strings.TrimSpace(e.Note)
	if err := e.Validate(); err != nil {
		return core.Project{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	p, err := s.store.AppendExpense(ctx, id, e)
	if err != nil {
		return core.Project{}, fmt.Errorf("add expense: %w", err)
	}
	if !p.HasCategory(e.Category) {
		slog.WarnContext(ctx, "Expense category not in project taxonomy",
			"project_id", id,
			"category", e.Category)
	}
	s.publish(ctx, amqp.EventExpenseAdded, id)
	return p, nil
}

// AddCategory extends the taxonomy. Re-adding an existing name is a no-op
// that reports added=false and publishes nothing.
func (s *ProjectService) AddCategory(ctx context.Context, id string, name string) (core.Project, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Project{}, false, fmt.Errorf("%w: %w", ErrValidation, core.ErrEmptyCategory)
	}
	p, added, err := s.store.AppendCategory(ctx, id, name)
	if err != nil {
		return core.Project{}, false, fmt.Errorf("add category: %w", err)
	}
	if added {
		s.publish(ctx, amqp.EventCategoryAdded, id)
	}
	return p, added, nil
}

// Portfolio loads every project and rolls them up.
func (s *ProjectService) Portfolio(ctx context.Context, th finance.Thresholds) (finance.Portfolio, finance.Insights, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return finance.Portfolio{}, finance.Insights{}, fmt.Errorf("list projects: %w", err)
	}
	pf := finance.Rollup(projects)
	return pf, finance.BuildInsights(pf, th), nil
}

// publish never fails the request: the mutation is already stored.
func (s *ProjectService) publish(ctx context.Context, t amqp.EventType, id string) {
	if s.events == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", "type", t)
		return
	}
	if err := s.events.Publish(ctx, amqp.NewProjectEvent(t, id)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish project event",
			"type", t,
			"project_id", id,
			"error", err)
	}
}

// Close closes the underlying store.
func (s *ProjectService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close project service: %w", err)
	}
	return nil
}
