package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"studioledger/internal/amqp"
	"studioledger/internal/finance"
	"studioledger/internal/log"
	"studioledger/internal/sheets"
	"studioledger/internal/store"
)

// ExportWorker mirrors project summaries into a SummaryWriter, one event at
// a time from AMQP and in bulk on a schedule.
type ExportWorker struct {
	projects    store.ProjectReader
	writer      sheets.SummaryWriter
	thresholds  finance.Thresholds
	concurrency int
	logger      *log.Logger

	exported atomic.Int64
	failed   atomic.Int64
}

func NewExportWorker(projects store.ProjectReader, writer sheets.SummaryWriter, th finance.Thresholds, concurrency int) *ExportWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	if th == (finance.Thresholds{}) {
		th = finance.DefaultThresholds
	}
	return &ExportWorker{
		projects:    projects,
		writer:      writer,
		thresholds:  th,
		concurrency: concurrency,
		logger:      log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker),
	}
}

// WithLogger replaces the worker's logger.
func (w *ExportWorker) WithLogger(l *log.Logger) *ExportWorker {
	w.logger = l.WithComponent(log.ComponentWorker)
	return w
}

// HandleEvent processes a single project event from AMQP. A project that no
// longer exists is treated as deleted.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.ProjectEvent) error {
	if ev == nil {
		return errors.New("nil event")
	}
	w.logger.InfoContext(ctx, "Processing project event",
		log.FieldEventType, string(ev.Type),
		log.FieldProjectID, ev.ProjectID)

	if ev.Type == amqp.EventProjectDeleted {
		return w.remove(ctx, ev.ProjectID)
	}

	p, err := w.projects.GetProject(ctx, ev.ProjectID)
	if errors.Is(err, store.ErrNotFound) {
		w.logger.WarnContext(ctx, "Project vanished before export, removing row",
			log.FieldProjectID, ev.ProjectID)
		return w.remove(ctx, ev.ProjectID)
	}
	if err != nil {
		return fmt.Errorf("get project from store: %w", err)
	}

	if err := w.writer.UpsertSummary(ctx, finance.Summarize(p, w.thresholds)); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("export project %s: %w", ev.ProjectID, err)
	}
	w.exported.Add(1)
	return nil
}

func (w *ExportWorker) remove(ctx context.Context, id string) error {
	if err := w.writer.DeleteProject(ctx, id); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("remove project %s: %w", id, err)
	}
	w.logger.InfoContext(ctx, "Removed exported project", log.FieldProjectID, id)
	return nil
}

// ExportAll summarises and writes every project, at most concurrency at a
// time. Individual failures do not stop the run; they are joined into the
// returned error.
func (w *ExportWorker) ExportAll(ctx context.Context) (int, error) {
	start := time.Now()
	projects, err := w.projects.ListProjects(ctx)
	if err != nil {
		return 0, fmt.Errorf("list projects: %w", err)
	}

	var (
		mu       sync.Mutex
		failures []error
		done     atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, p := range projects {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := w.writer.UpsertSummary(gctx, finance.Summarize(p, w.thresholds)); err != nil {
				w.failed.Add(1)
				mu.Lock()
				failures = append(failures, fmt.Errorf("export project %s: %w", p.ID, err))
				mu.Unlock()
				return nil
			}
			w.exported.Add(1)
			done.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(done.Load()), err
	}

	w.logger.InfoContext(ctx, "Full export completed",
		log.FieldOperation, log.OpExport,
		"total", len(projects),
		"exported", done.Load(),
		"errors", len(failures),
		log.FieldDuration, time.Since(start).Milliseconds())
	return int(done.Load()), errors.Join(failures...)
}

// Stats reports how many rows were written and how many writes failed since
// the worker started.
func (w *ExportWorker) Stats() (exported, failed int64) {
	return w.exported.Load(), w.failed.Load()
}
