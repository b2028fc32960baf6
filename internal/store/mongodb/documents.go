package mongodb

import (
	"time"

	"studioledger/internal/core"
)

type projectDoc struct {
	ID           string       `bson:"_id"`
	CustomerName string       `bson:"customerName"`
	Location     string       `bson:"location"`
	SquareFeet   float64      `bson:"squareFeet"`
	QuotedCents  int64        `bson:"quotedCents"`
	Categories   []string     `bson:"categories"`
	Payments     []paymentDoc `bson:"payments"`
	Expenses     []expenseDoc `bson:"expenses"`
	CreatedAt    time.Time    `bson:"createdAt"`
	UpdatedAt    time.Time    `bson:"updatedAt"`
}

type paymentDoc struct {
	ID          string    `bson:"_id"`
	AmountCents int64     `bson:"amountCents"`
	Date        time.Time `bson:"date"`
	Note        string    `bson:"note,omitempty"`
}

type expenseDoc struct {
	ID          string    `bson:"_id"`
	Category    string    `bson:"category"`
	AmountCents int64     `bson:"amountCents"`
	Date        time.Time `bson:"date"`
	Note        string    `bson:"note,omitempty"`
}

func fromProject(p core.Project) projectDoc {
	d := projectDoc{
		ID:           p.ID,
		CustomerName: p.CustomerName,
		Location:     p.Location,
		SquareFeet:   p.SquareFeet,
		QuotedCents:  p.QuotedPrice.Cents,
		Categories:   append([]string{}, p.Categories...),
		Payments:     make([]paymentDoc, 0, len(p.Payments)),
		Expenses:     make([]expenseDoc, 0, len(p.Expenses)),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	for _, pay := range p.Payments {
		d.Payments = append(d.Payments, fromPayment(pay))
	}
	for _, e := range p.Expenses {
		d.Expenses = append(d.Expenses, fromExpense(e))
	}
	return d
}

func fromPayment(p core.Payment) paymentDoc {
	return paymentDoc{ID: p.ID, AmountCents: p.Amount.Cents, Date: p.Date.Time, Note: p.Note}
}

func fromExpense(e core.Expense) expenseDoc {
	return expenseDoc{ID: e.ID, Category: e.Category, AmountCents: e.Amount.Cents, Date: e.Date.Time, Note: e.Note}
}

func (d projectDoc) toProject() core.Project {
	p := core.Project{
		ID:           d.ID,
		CustomerName: d.CustomerName,
		Location:     d.Location,
		SquareFeet:   d.SquareFeet,
		QuotedPrice:  core.Money{Cents: d.QuotedCents},
		Categories:   append([]string{}, d.Categories...),
		Payments:     make([]core.Payment, 0, len(d.Payments)),
		Expenses:     make([]core.Expense, 0, len(d.Expenses)),
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
	for _, pay := range d.Payments {
		p.Payments = append(p.Payments, core.Payment{
			ID:     pay.ID,
			Amount: core.Money{Cents: pay.AmountCents},
			Date:   calendarDay(pay.Date),
			Note:   pay.Note,
		})
	}
	for _, e := range d.Expenses {
		p.Expenses = append(p.Expenses, core.Expense{
			ID:       e.ID,
			Category: e.Category,
			Amount:   core.Money{Cents: e.AmountCents},
			Date:     calendarDay(e.Date),
			Note:     e.Note,
		})
	}
	return p
}

// calendarDay drops the time of day BSON dates carry.
func calendarDay(t time.Time) core.Date {
	t = t.UTC()
	return core.NewDate(t.Year(), int(t.Month()), t.Day())
}
