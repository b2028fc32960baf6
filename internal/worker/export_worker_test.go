package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioledger/internal/amqp"
	"studioledger/internal/core"
	"studioledger/internal/finance"
	"studioledger/internal/store/memory"
)

type fakeWriter struct {
	mu       sync.Mutex
	rows     map[string]finance.ProjectSummary
	deleted  []string
	failFor  string
	inFlight int
	peak     int
	delay    time.Duration
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{rows: map[string]finance.ProjectSummary{}}
}

func (f *fakeWriter) UpsertSummary(_ context.Context, s finance.ProjectSummary) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if s.ProjectID == f.failFor {
		return errors.New("sheet unavailable")
	}
	f.rows[s.ProjectID] = s
	return nil
}

func (f *fakeWriter) DeleteProject(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func seed(t *testing.T, st *memory.Store, customer string, quotedUnits int64) core.Project {
	t.Helper()
	p, err := st.CreateProject(context.Background(), core.Project{
		CustomerName: customer,
		Location:     "Pune",
		SquareFeet:   1000,
		QuotedPrice:  core.NewMoney(quotedUnits),
		Categories:   []string{"Furniture"},
	})
	require.NoError(t, err)
	return p
}

func TestHandleEvent_UpsertsSummary(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	p := seed(t, st, "Mehta", 100000)
	_, err := st.AppendPayment(ctx, p.ID, core.Payment{Amount: core.NewMoney(40000), Date: core.NewDate(2024, 3, 1)})
	require.NoError(t, err)
	_, err = st.AppendExpense(ctx, p.ID, core.Expense{Category: "Furniture", Amount: core.NewMoney(30000), Date: core.NewDate(2024, 3, 2)})
	require.NoError(t, err)

	w := newFakeWriter()
	ew := NewExportWorker(st, w, finance.DefaultThresholds, 2)

	require.NoError(t, ew.HandleEvent(ctx, amqp.NewProjectEvent(amqp.EventExpenseAdded, p.ID)))

	got, ok := w.rows[p.ID]
	require.True(t, ok)
	assert.Equal(t, core.NewMoney(40000), got.TotalPayments)
	assert.Equal(t, core.NewMoney(60000), got.RemainingAmount)
	assert.Equal(t, core.NewMoney(70000), got.ProfitAmount)
	assert.Equal(t, 70, got.ProfitMargin)
	assert.Equal(t, finance.HealthHealthy, got.Health)

	exported, failed := ew.Stats()
	assert.EqualValues(t, 1, exported)
	assert.EqualValues(t, 0, failed)
}

func TestHandleEvent_DeleteEvent(t *testing.T) {
	w := newFakeWriter()
	ew := NewExportWorker(memory.New(), w, finance.Thresholds{}, 1)

	require.NoError(t, ew.HandleEvent(context.Background(), amqp.NewProjectEvent(amqp.EventProjectDeleted, "gone")))
	assert.Equal(t, []string{"gone"}, w.deleted)
}

func TestHandleEvent_MissingProjectIsRemoved(t *testing.T) {
	w := newFakeWriter()
	w.rows["stale"] = finance.ProjectSummary{ProjectID: "stale"}
	ew := NewExportWorker(memory.New(), w, finance.DefaultThresholds, 1)

	require.NoError(t, ew.HandleEvent(context.Background(), amqp.NewProjectEvent(amqp.EventProjectUpdated, "stale")))
	assert.Empty(t, w.rows)
	assert.Equal(t, []string{"stale"}, w.deleted)
}

func TestHandleEvent_WriterFailure(t *testing.T) {
	st := memory.New()
	p := seed(t, st, "Rao", 50000)
	w := newFakeWriter()
	w.failFor = p.ID
	ew := NewExportWorker(st, w, finance.DefaultThresholds, 1)

	err := ew.HandleEvent(context.Background(), amqp.NewProjectEvent(amqp.EventProjectCreated, p.ID))
	require.Error(t, err)
	_, failed := ew.Stats()
	assert.EqualValues(t, 1, failed)
}

func TestHandleEvent_NilEvent(t *testing.T) {
	ew := NewExportWorker(memory.New(), newFakeWriter(), finance.DefaultThresholds, 1)
	assert.Error(t, ew.HandleEvent(context.Background(), nil))
}

func TestExportAll(t *testing.T) {
	st := memory.New()
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		seed(t, st, name, 10000)
	}
	w := newFakeWriter()
	w.delay = 10 * time.Millisecond
	ew := NewExportWorker(st, w, finance.DefaultThresholds, 2)

	n, err := ew.ExportAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Len(t, w.rows, 6)
	assert.LessOrEqual(t, w.peak, 2)
}

func TestExportAll_JoinsFailures(t *testing.T) {
	st := memory.New()
	seed(t, st, "A", 10000)
	bad := seed(t, st, "B", 10000)
	w := newFakeWriter()
	w.failFor = bad.ID
	ew := NewExportWorker(st, w, finance.DefaultThresholds, 4)

	n, err := ew.ExportAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad.ID)
	assert.Equal(t, 1, n)
}

func TestExportAll_CancelledContext(t *testing.T) {
	st := memory.New()
	seed(t, st, "A", 10000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ew := NewExportWorker(st, newFakeWriter(), finance.DefaultThresholds, 1)
	_, err := ew.ExportAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStartSchedule(t *testing.T) {
	ew := NewExportWorker(memory.New(), newFakeWriter(), finance.DefaultThresholds, 1)

	_, err := ew.StartSchedule(context.Background(), "not a schedule")
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop, err := ew.StartSchedule(ctx, "@hourly")
	require.NoError(t, err)
	stop()
	stop()
}

func TestLogWriter(t *testing.T) {
	lw := NewLogWriter(nil)
	assert.NoError(t, lw.UpsertSummary(context.Background(), finance.ProjectSummary{ProjectID: "p1"}))
	assert.NoError(t, lw.DeleteProject(context.Background(), "p1"))
}
