package store

import (
	"time"

	"studioledger/internal/core"
)

// PrepareNew fills the identity, timestamps and entry ids of a project about
// to be inserted and normalizes its categories. Backends call it so every
// store hands out the same shape.
func PrepareNew(p core.Project, now time.Time) core.Project {
	out := p.Clone()
	if out.ID == "" {
		out.ID = core.NewID()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now.UTC()
	}
	out.UpdatedAt = out.CreatedAt
	out.Categories = core.NormalizeCategories(out.Categories)
	for i := range out.Payments {
		out.Payments[i] = PreparePayment(out.Payments[i])
	}
	for i := range out.Expenses {
		out.Expenses[i] = PrepareExpense(out.Expenses[i])
	}
	if out.Payments == nil {
		out.Payments = []core.Payment{}
	}
	if out.Expenses == nil {
		out.Expenses = []core.Expense{}
	}
	return out
}

func PreparePayment(p core.Payment) core.Payment {
	if p.ID == "" {
		p.ID = core.NewID()
	}
	return p
}

func PrepareExpense(e core.Expense) core.Expense {
	if e.ID == "" {
		e.ID = core.NewID()
	}
	return e
}
