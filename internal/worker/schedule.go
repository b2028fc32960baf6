package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"studioledger/internal/log"
)

// cronLogger adapts log.Logger to cron.Logger.
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append([]any{log.FieldError, err}, keysAndValues...)...)
}

// StartSchedule runs ExportAll on spec (standard five-field cron syntax or a
// descriptor such as "@hourly") until ctx is cancelled. Overlapping runs are
// skipped. The returned function stops the scheduler and waits for a running
// export to finish.
func (w *ExportWorker) StartSchedule(ctx context.Context, spec string) (func(), error) {
	logger := cronLogger{l: w.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() {
		if _, err := w.ExportAll(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Scheduled export failed",
				log.FieldOperation, log.OpExport,
				log.FieldError, err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid export schedule %q: %w", spec, err)
	}
	c.Start()
	w.logger.InfoContext(ctx, "Export schedule started", "schedule", spec)

	stop := func() {
		<-c.Stop().Done()
	}
	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return stop, nil
}
