package finance

import (
	"sort"

	"github.com/shopspring/decimal"

	"studioledger/internal/core"
)

// ProjectSummary bundles the derived figures for one project.
type ProjectSummary struct {
	ProjectID         string                `json:"projectId"`
	CustomerName      string                `json:"customerName"`
	Location          string                `json:"location"`
	QuotedPrice       core.Money            `json:"quotedPrice"`
	TotalPayments     core.Money            `json:"totalPayments"`
	RemainingAmount   core.Money            `json:"remainingAmount"`
	TotalExpenses     core.Money            `json:"totalExpenses"`
	ProfitAmount      core.Money            `json:"profitAmount"`
	ProfitMargin      int                   `json:"profitMargin"`
	PaymentPercentage int                   `json:"paymentPercentage"`
	Categories        []core.CategoryAmount `json:"categories"`
	TopCategories     []core.CategoryAmount `json:"topCategories"`
	Health            Health                `json:"health"`
}

// RankedProject is one row of the portfolio ranking.
type RankedProject struct {
	ProjectID    string     `json:"projectId"`
	CustomerName string     `json:"customerName"`
	Location     string     `json:"location"`
	QuotedPrice  core.Money `json:"quotedPrice"`
	Expenses     core.Money `json:"expenses"`
	Profit       core.Money `json:"profit"`
	Margin       int        `json:"margin"`
}

// Portfolio is the cross-project rollup.
type Portfolio struct {
	ProjectCount  int                   `json:"projectCount"`
	TotalQuoted   core.Money            `json:"totalQuoted"`
	TotalReceived core.Money            `json:"totalReceived"`
	TotalExpenses core.Money            `json:"totalExpenses"`
	TotalProfit   core.Money            `json:"totalProfit"`
	AverageMargin float64               `json:"averageMargin"`
	Ranking       []RankedProject       `json:"ranking"`
	Categories    []core.CategoryAmount `json:"categories"`
	TopCategories []core.CategoryAmount `json:"topCategories"`
}

// TopCategoryLimit is how many categories the summaries highlight.
const TopCategoryLimit = 5

// Summarize computes every derived figure for p.
func Summarize(p core.Project, th Thresholds) ProjectSummary {
	byCat := ExpensesByCategory(p.Expenses)
	margin := ProfitMargin(p.QuotedPrice, p.Expenses)
	return ProjectSummary{
		ProjectID:         p.ID,
		CustomerName:      p.CustomerName,
		Location:          p.Location,
		QuotedPrice:       p.QuotedPrice,
		TotalPayments:     TotalPayments(p.Payments),
		RemainingAmount:   RemainingAmount(p.QuotedPrice, p.Payments),
		TotalExpenses:     TotalExpenses(p.Expenses),
		ProfitAmount:      ProfitAmount(p.QuotedPrice, p.Expenses),
		ProfitMargin:      margin,
		PaymentPercentage: PaymentPercentage(p.QuotedPrice, p.Payments),
		Categories:        MergeCategories(p.Categories, byCat),
		TopCategories:     SortedCategoriesByExpense(byCat, p.Categories, TopCategoryLimit),
		Health:            HealthOf(margin, th),
	}
}

// Rollup aggregates a set of projects. The average margin is the plain mean
// of per-project margins rounded to one decimal.
func Rollup(projects []core.Project) Portfolio {
	pf := Portfolio{
		ProjectCount: len(projects),
		Ranking:      make([]RankedProject, 0, len(projects)),
	}
	var all []core.Expense
	marginSum := int64(0)
	for _, p := range projects {
		expenses := TotalExpenses(p.Expenses)
		profit := p.QuotedPrice.Sub(expenses)
		margin := ProfitMargin(p.QuotedPrice, p.Expenses)

		pf.TotalQuoted = pf.TotalQuoted.Add(p.QuotedPrice)
		pf.TotalReceived = pf.TotalReceived.Add(TotalPayments(p.Payments))
		pf.TotalExpenses = pf.TotalExpenses.Add(expenses)
		pf.TotalProfit = pf.TotalProfit.Add(profit)
		marginSum += int64(margin)

		pf.Ranking = append(pf.Ranking, RankedProject{
			ProjectID:    p.ID,
			CustomerName: p.CustomerName,
			Location:     p.Location,
			QuotedPrice:  p.QuotedPrice,
			Expenses:     expenses,
			Profit:       profit,
			Margin:       margin,
		})

		all = append(all, p.Expenses...)
	}
	pf.Categories = CategoryTotals(all)

	if n := len(projects); n > 0 {
		avg := decimal.NewFromInt(marginSum).DivRound(decimal.NewFromInt(int64(n)), 1)
		pf.AverageMargin = avg.InexactFloat64()
	}

	sort.SliceStable(pf.Ranking, func(i, j int) bool {
		return pf.Ranking[i].Margin > pf.Ranking[j].Margin
	})

	top := make([]core.CategoryAmount, 0, len(pf.Categories))
	for _, c := range pf.Categories {
		if c.Amount.Cents > 0 {
			top = append(top, c)
		}
	}
	sortByAmountDesc(top)
	if len(top) > TopCategoryLimit {
		top = top[:TopCategoryLimit]
	}
	pf.TopCategories = top
	return pf
}
