package log

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithContext stores logger on ctx for FromContext.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger carried by ctx, or one wrapping
// slog.Default tagged as the app component.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey{}).(*Logger); ok && l != nil {
		return l
	}
	return &Logger{Logger: slog.Default(), component: ComponentApp}
}

// StructuredLogger writes the few domain events that share a fixed field set.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogLedgerMutation records a payment, expense or category appended to a
// project. amountCents is zero for categories.
func (sl *StructuredLogger) LogLedgerMutation(ctx context.Context, op, projectID, kind string, amountCents int64, category string) {
	fields := NewFields().
		WithProject(projectID, "").
		WithLedgerEntry(kind, amountCents, category).
		WithOperation(op).
		WithComponent(ComponentProject)
	sl.logger.InfoContext(ctx, "Project mutated", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	fields = fields.WithError(err).WithOperation(operation).WithComponent(component)
	sl.logger.ErrorContext(ctx, msg, fields.ToSlice()...)
}
