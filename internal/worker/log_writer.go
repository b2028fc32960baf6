package worker

import (
	"context"

	"studioledger/internal/finance"
	"studioledger/internal/log"
	"studioledger/internal/sheets"
)

// LogWriter is the SummaryWriter used when no spreadsheet is configured. It
// only logs what would have been exported.
type LogWriter struct {
	logger *log.Logger
}

var _ sheets.SummaryWriter = (*LogWriter)(nil)

func NewLogWriter(logger *log.Logger) *LogWriter {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LogWriter{logger: logger.WithComponent(log.ComponentSheets)}
}

func (l *LogWriter) UpsertSummary(ctx context.Context, s finance.ProjectSummary) error {
	l.logger.InfoContext(ctx, "Project summary",
		log.FieldProjectID, s.ProjectID,
		log.FieldCustomer, s.CustomerName,
		"quoted", s.QuotedPrice.String(),
		"received", s.TotalPayments.String(),
		"remaining", s.RemainingAmount.String(),
		"expenses", s.TotalExpenses.String(),
		"profit", s.ProfitAmount.String(),
		"margin", s.ProfitMargin,
		"health", string(s.Health))
	return nil
}

func (l *LogWriter) DeleteProject(ctx context.Context, id string) error {
	l.logger.InfoContext(ctx, "Project removed", log.FieldProjectID, id)
	return nil
}
