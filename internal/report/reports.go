package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"studioledger/internal/core"
	"studioledger/internal/finance"
)

func healthStyle(h finance.Health) lipgloss.Style {
	switch h {
	case finance.HealthHealthy:
		return lipgloss.NewStyle().Foreground(ColorGreen)
	case finance.HealthLow:
		return lipgloss.NewStyle().Foreground(ColorRed)
	default:
		return lipgloss.NewStyle().Foreground(ColorOrange)
	}
}

// Projects lists every project with its headline figures.
func Projects(projects []core.Project, th finance.Thresholds) string {
	if len(projects) == 0 {
		return "\n  No projects yet.\n"
	}
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		s := finance.Summarize(p, th)
		rows = append(rows, []string{
			truncate(p.CustomerName, 24),
			truncate(p.Location, 18),
			s.QuotedPrice.Display(),
			s.TotalPayments.Display(),
			s.TotalExpenses.Display(),
			Percent(s.ProfitMargin),
			p.ID,
		})
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(RenderTitle(fmt.Sprintf("PROJECTS  %d total", len(projects))))
	b.WriteString("\n\n")
	b.WriteString(RenderTable(Table{
		Headers: []string{"Customer", "Location", "Quoted", "Received", "Expenses", "Margin", "ID"},
		Rows:    rows,
	}))
	return b.String()
}

// Project renders one project: the money figures, then categories sorted by
// spend.
func Project(p core.Project, th finance.Thresholds) string {
	s := finance.Summarize(p, th)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(RenderTitle(strings.ToUpper(p.CustomerName)))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  %s  ·  %.0f sq ft  ·  created %s\n\n",
		p.Location, p.SquareFeet, p.CreatedAt.Format("2 Jan 2006"))

	b.WriteString(RenderTable(Table{
		Title:   "Financials",
		Headers: []string{"Figure", "Amount"},
		Rows: [][]string{
			{"Quoted", s.QuotedPrice.Display()},
			{"Received", fmt.Sprintf("%s (%s)", s.TotalPayments.Display(), Percent(s.PaymentPercentage))},
			{"Remaining", s.RemainingAmount.Display()},
			{separator},
			{"Expenses", s.TotalExpenses.Display()},
			{"Profit", s.ProfitAmount.Display()},
			{"Margin", healthStyle(s.Health).Render(fmt.Sprintf("%s %s", Percent(s.ProfitMargin), s.Health))},
		},
	}))

	byCat := finance.ExpensesByCategory(p.Expenses)
	sorted := finance.SortedCategoriesByExpense(byCat, p.Categories, 0)
	if len(sorted) > 0 {
		rows := make([][]string, 0, len(sorted))
		for _, c := range sorted {
			rows = append(rows, []string{
				c.Name,
				c.Amount.Display(),
				Percent(finance.CategoryShare(c.Amount, s.TotalExpenses)),
			})
		}
		b.WriteString("\n")
		b.WriteString(RenderTable(Table{
			Title:   "Categories",
			Headers: []string{"Category", "Spent", "Share"},
			Rows:    rows,
		}))
	}

	if len(p.Payments) > 0 {
		rows := make([][]string, 0, len(p.Payments))
		for _, pay := range p.Payments {
			rows = append(rows, []string{pay.Date.String(), pay.Amount.Display(), truncate(pay.Note, 30)})
		}
		b.WriteString("\n")
		b.WriteString(RenderTable(Table{
			Title:   "Payments",
			Headers: []string{"Date", "Amount", "Note"},
			Rows:    rows,
		}))
	}
	return b.String()
}

// Summary renders the portfolio totals, the margin ranking, the costliest
// categories and the recommendations.
func Summary(pf finance.Portfolio, in finance.Insights) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(RenderTitle("PORTFOLIO SUMMARY"))
	b.WriteString("\n\n")

	b.WriteString(RenderTable(Table{
		Title:   "Totals",
		Headers: []string{"Figure", "Value"},
		Rows: [][]string{
			{"Projects", fmt.Sprintf("%d", pf.ProjectCount)},
			{"Quoted", pf.TotalQuoted.Display()},
			{"Received", pf.TotalReceived.Display()},
			{"Expenses", pf.TotalExpenses.Display()},
			{"Profit", pf.TotalProfit.Display()},
			{"Average margin", healthStyle(in.Health).Render(fmt.Sprintf("%.1f%%", pf.AverageMargin))},
		},
	}))

	if len(pf.Ranking) > 0 {
		rows := make([][]string, 0, len(pf.Ranking))
		for i, r := range pf.Ranking {
			rows = append(rows, []string{
				fmt.Sprintf("%d. %s", i+1, truncate(r.CustomerName, 24)),
				r.QuotedPrice.Display(),
				r.Expenses.Display(),
				r.Profit.Display(),
				Percent(r.Margin),
			})
		}
		b.WriteString("\n")
		b.WriteString(RenderTable(Table{
			Title:   "Ranking by margin",
			Headers: []string{"Project", "Quoted", "Expenses", "Profit", "Margin"},
			Rows:    rows,
		}))
	}

	if len(pf.TopCategories) > 0 {
		rows := make([][]string, 0, len(pf.TopCategories))
		for _, c := range pf.TopCategories {
			rows = append(rows, []string{
				c.Name,
				c.Amount.Display(),
				Percent(finance.CategoryShare(c.Amount, pf.TotalExpenses)),
			})
		}
		b.WriteString("\n")
		b.WriteString(RenderTable(Table{
			Title:   "Top categories",
			Headers: []string{"Category", "Spent", "Share"},
			Rows:    rows,
		}))
	}

	if len(in.Recommendations) > 0 {
		b.WriteString("\n  ")
		b.WriteString(headerStyle.Render("Recommendations"))
		b.WriteString("\n")
		for _, r := range in.Recommendations {
			fmt.Fprintf(&b, "  • %s\n", r)
		}
	}
	return b.String()
}
