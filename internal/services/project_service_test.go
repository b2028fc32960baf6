package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioledger/internal/amqp"
	"studioledger/internal/core"
	"studioledger/internal/finance"
	"studioledger/internal/store"
	"studioledger/internal/store/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.ProjectEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev *amqp.ProjectEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *ev)
	return r.err
}

func (r *recordingPublisher) types() []amqp.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]amqp.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func newService(t *testing.T) (*ProjectService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	return NewProjectService(memory.New(), pub, nil), pub
}

func validProject() core.Project {
	return core.Project{
		CustomerName: " Sharma ",
		Location:     "Jaipur",
		SquareFeet:   1100,
		QuotedPrice:  core.NewMoney(100000),
	}
}

func TestCreateProjectSeedsDefaultCategories(t *testing.T) {
	svc, pub := newService(t)
	p, err := svc.CreateProject(context.Background(), validProject())
	require.NoError(t, err)

	assert.Equal(t, "Sharma", p.CustomerName)
	assert.Equal(t, core.DefaultCategories, p.Categories)
	assert.Equal(t, []amqp.EventType{amqp.EventProjectCreated}, pub.types())
	assert.Equal(t, p.ID, pub.events[0].ProjectID)
}

func TestCreateProjectKeepsGivenCategories(t *testing.T) {
	svc, _ := newService(t)
	in := validProject()
	in.Categories = []string{"AC", "AC", "Mesh"}
	p, err := svc.CreateProject(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"AC", "Mesh"}, p.Categories)
}

func TestCustomDefaultCategories(t *testing.T) {
	svc := NewProjectService(memory.New(), nil, []string{"Tiles", "Tiles", "Lighting"})
	p, err := svc.CreateProject(context.Background(), validProject())
	require.NoError(t, err)
	assert.Equal(t, []string{"Tiles", "Lighting"}, p.Categories)
}

func TestCreateProjectValidation(t *testing.T) {
	svc, pub := newService(t)
	in := validProject()
	in.QuotedPrice = core.Money{}
	_, err := svc.CreateProject(context.Background(), in)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.True(t, errors.Is(err, core.ErrInvalidQuotedPrice))
	assert.Empty(t, pub.types())
}

func TestLedgerOperations(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()
	p, err := svc.CreateProject(ctx, validProject())
	require.NoError(t, err)

	p, err = svc.AddPayment(ctx, p.ID, core.Payment{Amount: core.NewMoney(40000), Date: core.NewDate(2025, 5, 1)})
	require.NoError(t, err)
	assert.Len(t, p.Payments, 1)

	_, err = svc.AddPayment(ctx, p.ID, core.Payment{Amount: core.Money{}, Date: core.NewDate(2025, 5, 1)})
	assert.True(t, errors.Is(err, ErrValidation))

	p, err = svc.AddExpense(ctx, p.ID, core.Expense{Category: " Painting ", Amount: core.NewMoney(10000), Date: core.NewDate(2025, 5, 2)})
	require.NoError(t, err)
	assert.Equal(t, "Painting", p.Expenses[0].Category)

	// Unknown categories are accepted.
	p, err = svc.AddExpense(ctx, p.ID, core.Expense{Category: "Plumbing", Amount: core.NewMoney(500), Date: core.NewDate(2025, 5, 2)})
	require.NoError(t, err)
	assert.Len(t, p.Expenses, 2)

	p, added, err := svc.AddCategory(ctx, p.ID, " Plumbing ")
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, p.HasCategory("Plumbing"))
	p, added, err = svc.AddCategory(ctx, p.ID, "Plumbing")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Len(t, p.Categories, len(core.DefaultCategories)+1)

	_, _, err = svc.AddCategory(ctx, p.ID, "  ")
	assert.True(t, errors.Is(err, core.ErrEmptyCategory))

	_, err = svc.AddPayment(ctx, "missing", core.Payment{Amount: core.NewMoney(1), Date: core.NewDate(2025, 1, 1)})
	assert.True(t, errors.Is(err, store.ErrNotFound))

	assert.Equal(t, []amqp.EventType{
		amqp.EventProjectCreated,
		amqp.EventPaymentAdded,
		amqp.EventExpenseAdded,
		amqp.EventExpenseAdded,
		amqp.EventCategoryAdded,
	}, pub.types(), "re-adding a category publishes nothing")
}

func TestUpdateAndDelete(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, validProject())

	same, err := svc.UpdateProject(ctx, p.ID, core.ProjectPatch{})
	require.NoError(t, err)
	assert.Equal(t, p.ID, same.ID)

	empty := ""
	_, err = svc.UpdateProject(ctx, p.ID, core.ProjectPatch{Location: &empty})
	assert.True(t, errors.Is(err, core.ErrEmptyLocation))

	loc := "Udaipur"
	updated, err := svc.UpdateProject(ctx, p.ID, core.ProjectPatch{Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, "Udaipur", updated.Location)

	require.NoError(t, svc.DeleteProject(ctx, p.ID))
	assert.True(t, errors.Is(svc.DeleteProject(ctx, p.ID), store.ErrNotFound))

	assert.Equal(t, []amqp.EventType{
		amqp.EventProjectCreated,
		amqp.EventProjectUpdated,
		amqp.EventProjectDeleted,
	}, pub.types())
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewProjectService(memory.New(), pub, nil)
	p, err := svc.CreateProject(context.Background(), validProject())
	require.NoError(t, err)

	got, err := svc.GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestPortfolio(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	a, _ := svc.CreateProject(ctx, validProject())
	b, _ := svc.CreateProject(ctx, validProject())
	_, _ = svc.AddExpense(ctx, a.ID, core.Expense{Category: "Painting", Amount: core.NewMoney(30000), Date: core.NewDate(2025, 1, 1)})
	_, _ = svc.AddExpense(ctx, b.ID, core.Expense{Category: "AC", Amount: core.NewMoney(70000), Date: core.NewDate(2025, 1, 1)})

	pf, in, err := svc.Portfolio(ctx, finance.DefaultThresholds)
	require.NoError(t, err)
	assert.Equal(t, 2, pf.ProjectCount)
	assert.InDelta(t, 50.0, pf.AverageMargin, 1e-9)
	assert.Equal(t, a.ID, pf.Ranking[0].ProjectID)
	assert.Equal(t, "AC", in.TopCategories[0])
}

func TestCloseWithNilStore(t *testing.T) {
	svc := &ProjectService{}
	assert.NoError(t, svc.Close())
}
