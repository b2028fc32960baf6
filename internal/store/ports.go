// Package store declares the persistence ports for projects and their
// ledgers. Backends live in subpackages (memory, mongodb) and in
// internal/storage (SQLite).
package store

import (
	"context"
	"errors"

	"studioledger/internal/core"
)

// ErrNotFound is returned (possibly wrapped) when a project id is unknown.
var ErrNotFound = errors.New("project not found")

type (
	ProjectReader interface {
		// ListProjects returns every project, newest first.
		ListProjects(ctx context.Context) ([]core.Project, error)
		GetProject(ctx context.Context, id string) (core.Project, error)
	}

	ProjectWriter interface {
		CreateProject(ctx context.Context, p core.Project) (core.Project, error)
		UpdateProject(ctx context.Context, id string, patch core.ProjectPatch) (core.Project, error)
		DeleteProject(ctx context.Context, id string) error
	}

	// LedgerAppender grows a project's sub-collections. AppendCategory is
	// idempotent: a name already present leaves the project unchanged and
	// reports added=false.
	LedgerAppender interface {
		AppendPayment(ctx context.Context, projectID string, p core.Payment) (core.Project, error)
		AppendExpense(ctx context.Context, projectID string, e core.Expense) (core.Project, error)
		AppendCategory(ctx context.Context, projectID string, name string) (p core.Project, added bool, err error)
	}

	Store interface {
		ProjectReader
		ProjectWriter
		LedgerAppender
		Close() error
	}
)
