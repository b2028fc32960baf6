// Package sheets declares the export ports used by the worker. The Google
// Sheets adapter lives in the google subpackage.
package sheets

import (
	"context"

	"studioledger/internal/finance"
)

type (
	// SummaryWriter keeps one row per project in an external sheet.
	SummaryWriter interface {
		// UpsertSummary replaces the row keyed by s.ProjectID, appending it
		// when absent.
		UpsertSummary(ctx context.Context, s finance.ProjectSummary) error
		// DeleteProject removes the row for id. A missing row is not an error.
		DeleteProject(ctx context.Context, id string) error
	}
)
