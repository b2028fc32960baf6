package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"studioledger/internal/core"
	"studioledger/internal/finance"
	"studioledger/internal/log"
	"studioledger/internal/services"
	"studioledger/internal/store"
)

type projectCard struct {
	Project core.Project
	Summary finance.ProjectSummary
}

type dashboardPage struct {
	Cards []projectCard
	Error string
}

type projectPage struct {
	Project    core.Project
	Summary    finance.ProjectSummary
	Largest    core.Money
	Categories []core.CategoryAmount
	Today      string
	Error      string
}

type newProjectPage struct {
	Form  map[string]string
	Error string
}

type summaryPage struct {
	PortfolioView
	Largest core.Money
}

// render executes name into a buffer first so a template failure never
// leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			"template", name,
			log.FieldOperation, log.OpRender,
			log.FieldError, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeCtx(r)
	defer cancel()
	var page dashboardPage
	projects, err := s.svc.ListProjects(ctx)
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).ErrorContext(r.Context(), "Failed to fetch projects",
			log.FieldError, err)
		page.Error = "Failed to load projects. Please try again later."
	}
	for _, p := range projects {
		page.Cards = append(page.Cards, projectCard{Project: p, Summary: s.summaryFor(r.Context(), p)})
	}
	s.render(w, r, http.StatusOK, "index.html", page)
}

func (s *Server) handleNewProjectPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "new_project.html", newProjectPage{})
}

func (s *Server) handleProjectPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeCtx(r)
	defer cancel()
	p, err := s.svc.GetProject(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.render(w, r, http.StatusNotFound, "not_found.html", nil)
			return
		}
		log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).ErrorContext(r.Context(), "Failed to fetch project",
			log.FieldError, err)
		http.Error(w, "Failed to fetch project", http.StatusInternalServerError)
		return
	}
	s.render(w, r, http.StatusOK, "project.html", s.buildProjectPage(r, p, r.URL.Query().Get("error")))
}

func (s *Server) buildProjectPage(r *http.Request, p core.Project, errMsg string) projectPage {
	sum := s.summaryFor(r.Context(), p)
	var largest core.Money
	for _, c := range sum.Categories {
		if c.Amount.Cents > largest.Cents {
			largest = c.Amount
		}
	}
	return projectPage{
		Project:    p,
		Summary:    sum,
		Largest:    largest,
		Categories: sum.Categories,
		Today:      today().String(),
		Error:      errMsg,
	}
}

func (s *Server) handleSummaryPage(w http.ResponseWriter, r *http.Request) {
	v, err := s.portfolioView(r.Context())
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).ErrorContext(r.Context(), "Failed to build portfolio",
			log.FieldError, err)
		http.Error(w, "Failed to fetch projects", http.StatusInternalServerError)
		return
	}
	page := summaryPage{PortfolioView: v}
	for _, c := range v.Portfolio.TopCategories {
		if c.Amount.Cents > page.Largest.Cents {
			page.Largest = c.Amount
		}
	}
	s.render(w, r, http.StatusOK, "summary.html", page)
}

// formError turns a rejected form submission into a user-facing message.
func formError(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Enter a positive amount"
	case errors.Is(err, core.ErrInvalidDate):
		return "Enter a valid date"
	case errors.Is(err, core.ErrEmptyCategory):
		return "Choose a category"
	case errors.Is(err, core.ErrEmptyCustomer):
		return "Customer name is required"
	case errors.Is(err, core.ErrEmptyLocation):
		return "Location is required"
	case errors.Is(err, core.ErrInvalidSquareFeet):
		return "Square feet must be positive"
	case errors.Is(err, core.ErrInvalidQuotedPrice):
		return "Quoted price must be positive"
	case errors.Is(err, core.ErrNoteTooLong):
		return "Note is too long"
	default:
		return "Something went wrong, please try again"
	}
}

func (s *Server) handleCreateProjectForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	form := map[string]string{
		"customerName": sanitizeInput(r.PostForm.Get("customerName")),
		"location":     sanitizeInput(r.PostForm.Get("location")),
		"squareFeet":   strings.TrimSpace(r.PostForm.Get("squareFeet")),
		"quotedPrice":  strings.TrimSpace(r.PostForm.Get("quotedPrice")),
		"categories":   r.PostForm.Get("categories"),
	}
	rerender := func(msg string) {
		s.render(w, r, http.StatusUnprocessableEntity, "new_project.html", newProjectPage{Form: form, Error: msg})
	}

	sqft, err := strconv.ParseFloat(form["squareFeet"], 64)
	if err != nil || sqft <= 0 {
		rerender(formError(core.ErrInvalidSquareFeet))
		return
	}
	quoted, err := core.ParseMoney(form["quotedPrice"])
	if err != nil {
		rerender(formError(core.ErrInvalidQuotedPrice))
		return
	}

	ctx, cancel := storeCtx(r)
	defer cancel()
	p, err := s.svc.CreateProject(ctx, core.Project{
		CustomerName: form["customerName"],
		Location:     form["location"],
		SquareFeet:   sqft,
		QuotedPrice:  quoted,
		Categories:   strings.Split(form["categories"], "\n"),
	})
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			rerender(formError(err))
			return
		}
		log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).ErrorContext(r.Context(), "Failed to create project",
			log.FieldError, err)
		rerender("Failed to create project")
		return
	}
	s.invalidate(p.ID)
	atomic.AddInt64(&s.appMetrics.projectsCreated, 1)
	http.Redirect(w, r, "/projects/"+p.ID, http.StatusSeeOther)
}

// handleLedgerForm serves the payment, expense and category forms on the
// project page. kind is the path segment.
func (s *Server) handleLedgerForm(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		back := "/projects/" + id
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}

		ctx, cancel := storeCtx(r)
		defer cancel()
		var err error
		changed := true
		switch kind {
		case "payments":
			var pay core.Payment
			if pay, err = paymentFromForm(r); err == nil {
				_, err = s.svc.AddPayment(ctx, id, pay)
				if err == nil {
					atomic.AddInt64(&s.appMetrics.paymentsAdded, 1)
				}
			}
		case "expenses":
			var e core.Expense
			if e, err = expenseFromForm(r); err == nil {
				_, err = s.svc.AddExpense(ctx, id, e)
				if err == nil {
					atomic.AddInt64(&s.appMetrics.expensesAdded, 1)
				}
			}
		case "categories":
			_, changed, err = s.svc.AddCategory(ctx, id, sanitizeInput(r.PostForm.Get("category")))
		default:
			err = fmt.Errorf("unknown ledger form %q", kind)
		}

		switch {
		case err == nil:
			if changed {
				s.invalidate(id)
			}
			http.Redirect(w, r, back+"#"+kind, http.StatusSeeOther)
		case errors.Is(err, store.ErrNotFound):
			s.render(w, r, http.StatusNotFound, "not_found.html", nil)
		default:
			if !errors.Is(err, services.ErrValidation) && !isFormInputError(err) {
				log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).ErrorContext(r.Context(), "Ledger form failed",
					"form", kind,
					log.FieldProjectID, id,
					log.FieldError, err)
			}
			http.Redirect(w, r, back+"?error="+url.QueryEscape(formError(err))+"#"+kind, http.StatusSeeOther)
		}
	}
}

func isFormInputError(err error) bool {
	return errors.Is(err, core.ErrInvalidAmount) || errors.Is(err, core.ErrInvalidDate)
}

func paymentFromForm(r *http.Request) (core.Payment, error) {
	amount, date, err := amountAndDate(r)
	if err != nil {
		return core.Payment{}, err
	}
	return core.Payment{Amount: amount, Date: date, Note: sanitizeInput(r.PostForm.Get("note"))}, nil
}

func expenseFromForm(r *http.Request) (core.Expense, error) {
	amount, date, err := amountAndDate(r)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		Category: sanitizeInput(r.PostForm.Get("category")),
		Amount:   amount,
		Date:     date,
		Note:     sanitizeInput(r.PostForm.Get("note")),
	}, nil
}

func amountAndDate(r *http.Request) (core.Money, core.Date, error) {
	amount, err := core.ParseMoney(r.PostForm.Get("amount"))
	if err != nil {
		return core.Money{}, core.Date{}, err
	}
	raw := strings.TrimSpace(r.PostForm.Get("date"))
	if raw == "" {
		return amount, today(), nil
	}
	date, err := core.ParseDate(raw)
	if err != nil {
		return core.Money{}, core.Date{}, core.ErrInvalidDate
	}
	return amount, date, nil
}
