package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"studioledger/internal/core"
	"studioledger/internal/finance"
	"studioledger/internal/log"
	"studioledger/internal/services"
	"studioledger/internal/store"
)

// projectResponse is a project with its derived figures alongside.
type projectResponse struct {
	core.Project
	Summary finance.ProjectSummary `json:"summary"`
}

type createProjectRequest struct {
	CustomerName string     `json:"customerName"`
	Location     string     `json:"location"`
	SquareFeet   float64    `json:"squareFeet"`
	QuotedPrice  core.Money `json:"quotedPrice"`
	Categories   []string   `json:"categories"`
}

type paymentRequest struct {
	Amount core.Money `json:"amount"`
	Date   *core.Date `json:"date"`
	Note   string     `json:"note"`
}

type expenseRequest struct {
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
	Date     *core.Date `json:"date"`
	Note     string     `json:"note"`
}

type categoryRequest struct {
	Category string `json:"category"`
}

func (s *Server) respondProject(w http.ResponseWriter, r *http.Request, status int, p core.Project) {
	writeJSON(w, status, projectResponse{Project: p, Summary: s.summaryFor(r.Context(), p)})
}

// fail maps service errors onto status codes. Validation and lookup
// failures keep their message; anything else gets the generic one.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op, msg string) {
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
	switch {
	case errors.Is(err, errMalformedBody):
		logger.WarnContext(r.Context(), "Malformed request body", log.FieldOperation, op, log.FieldError, err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Project not found")
	case errors.Is(err, services.ErrValidation):
		logger.WarnContext(r.Context(), "Rejected invalid input", log.FieldOperation, op, log.FieldError, err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		fields := log.NewFields().WithErrorType(log.ErrorTypeDatabase)
		if id := chi.URLParam(r, "id"); id != "" {
			fields = fields.WithProject(id, "")
		}
		log.NewStructuredLogger(logger).LogError(r.Context(), msg, err, log.ComponentHTTP, op, fields)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func storeCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), storeTimeout)
}

func today() core.Date {
	now := time.Now()
	return core.NewDate(now.Year(), int(now.Month()), now.Day())
}

func dateOrToday(d *core.Date) core.Date {
	if d == nil || d.IsZero() {
		return today()
	}
	return *d
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeCtx(r)
	defer cancel()
	projects, err := s.svc.ListProjects(ctx)
	if err != nil {
		s.fail(w, r, err, log.OpList, "Failed to fetch projects")
		return
	}
	out := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectResponse{Project: p, Summary: s.summaryFor(r.Context(), p)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, log.OpCreate, "Failed to create project")
		return
	}
	ctx, cancel := storeCtx(r)
	defer cancel()
	p, err := s.svc.CreateProject(ctx, core.Project{
		CustomerName: sanitizeInput(req.CustomerName),
		Location:     sanitizeInput(req.Location),
		SquareFeet:   req.SquareFeet,
		QuotedPrice:  req.QuotedPrice,
		Categories:   req.Categories,
	})
	if err != nil {
		s.fail(w, r, err, log.OpCreate, "Failed to create project")
		return
	}
	s.invalidate(p.ID)
	atomic.AddInt64(&s.appMetrics.projectsCreated, 1)
	log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).InfoContext(r.Context(), "Project created",
		log.NewFields().WithProject(p.ID, p.CustomerName).ToSlice()...)
	s.respondProject(w, r, http.StatusCreated, p)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeCtx(r)
	defer cancel()
	p, err := s.svc.GetProject(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err, log.OpRead, "Failed to fetch project")
		return
	}
	s.respondProject(w, r, http.StatusOK, p)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var patch core.ProjectPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.fail(w, r, err, log.OpUpdate, "Failed to update project")
		return
	}
	if patch.CustomerName != nil {
		v := sanitizeInput(*patch.CustomerName)
		patch.CustomerName = &v
	}
	if patch.Location != nil {
		v := sanitizeInput(*patch.Location)
		patch.Location = &v
	}
	id := chi.URLParam(r, "id")
	ctx, cancel := storeCtx(r)
	defer cancel()
	p, err := s.svc.UpdateProject(ctx, id, patch)
	if err != nil {
		s.fail(w, r, err, log.OpUpdate, "Failed to update project")
		return
	}
	s.invalidate(id)
	s.respondProject(w, r, http.StatusOK, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := storeCtx(r)
	defer cancel()
	if err := s.svc.DeleteProject(ctx, id); err != nil {
		s.fail(w, r, err, log.OpDelete, "Failed to delete project")
		return
	}
	s.invalidate(id)
	writeJSON(w, http.StatusOK, messageBody{Message: "Project deleted successfully"})
}

func (s *Server) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, log.OpAppend, "Failed to add payment")
		return
	}
	id := chi.URLParam(r, "id")
	ctx, cancel := storeCtx(r)
	defer cancel()
	p, err := s.svc.AddPayment(ctx, id, core.Payment{
		Amount: req.Amount,
		Date:   dateOrToday(req.Date),
		Note:   sanitizeInput(req.Note),
	})
	if err != nil {
		s.fail(w, r, err, log.OpAppend, "Failed to add payment")
		return
	}
	s.invalidate(id)
	atomic.AddInt64(&s.appMetrics.paymentsAdded, 1)
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogLedgerMutation(r.Context(), log.OpAppend, id, "payment", req.Amount.Cents, "")
	s.respondProject(w, r, http.StatusCreated, p)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, log.OpAppend, "Failed to add expense")
		return
	}
	id := chi.URLParam(r, "id")
	ctx, cancel := storeCtx(r)
	defer cancel()
	category := sanitizeInput(req.Category)
	p, err := s.svc.AddExpense(ctx, id, core.Expense{
		Category: category,
		Amount:   req.Amount,
		Date:     dateOrToday(req.Date),
		Note:     sanitizeInput(req.Note),
	})
	if err != nil {
		s.fail(w, r, err, log.OpAppend, "Failed to add expense")
		return
	}
	s.invalidate(id)
	atomic.AddInt64(&s.appMetrics.expensesAdded, 1)
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogLedgerMutation(r.Context(), log.OpAppend, id, "expense", req.Amount.Cents, category)
	s.respondProject(w, r, http.StatusCreated, p)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, log.OpAppend, "Failed to add category")
		return
	}
	id := chi.URLParam(r, "id")
	ctx, cancel := storeCtx(r)
	defer cancel()
	category := sanitizeInput(req.Category)
	p, added, err := s.svc.AddCategory(ctx, id, category)
	if err != nil {
		s.fail(w, r, err, log.OpAppend, "Failed to add category")
		return
	}
	if added {
		s.invalidate(id)
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogLedgerMutation(r.Context(), log.OpAppend, id, "category", 0, category)
	}
	s.respondProject(w, r, http.StatusCreated, p)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	v, err := s.portfolioView(r.Context())
	if err != nil {
		s.fail(w, r, err, log.OpRead, "Failed to fetch projects")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}
