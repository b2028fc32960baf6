// Package finance derives the figures shown for a project from its raw
// payments and expenses. Nothing here is stored; every value is recomputed
// from the ledger on each call.
package finance

import (
	"sort"

	"github.com/shopspring/decimal"

	"studioledger/internal/core"
)

var hundred = decimal.NewFromInt(100)

// TotalPayments sums every payment amount.
func TotalPayments(payments []core.Payment) core.Money {
	var total core.Money
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// TotalExpenses sums every expense amount.
func TotalExpenses(expenses []core.Expense) core.Money {
	var total core.Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// RemainingAmount is what the customer still owes. Negative when overpaid.
func RemainingAmount(quoted core.Money, payments []core.Payment) core.Money {
	return quoted.Sub(TotalPayments(payments))
}

// ProfitAmount is the quote minus everything spent. Negative when over budget.
func ProfitAmount(quoted core.Money, expenses []core.Expense) core.Money {
	return quoted.Sub(TotalExpenses(expenses))
}

// ProfitMargin is the profit as a whole percentage of the quote.
// A quote of zero or less yields 0.
func ProfitMargin(quoted core.Money, expenses []core.Expense) int {
	return percent(ProfitAmount(quoted, expenses), quoted)
}

// PaymentPercentage is the share of the quote received so far.
// A quote of zero or less yields 0.
func PaymentPercentage(quoted core.Money, payments []core.Payment) int {
	return percent(TotalPayments(payments), quoted)
}

// CategoryShare is the percentage of total expenses spent in one category.
func CategoryShare(amount, total core.Money) int {
	return percent(amount, total)
}

// BarWidth scales amount against the largest category to a 0..100 width.
func BarWidth(amount, largest core.Money) int {
	if largest.Cents < 1 {
		largest = core.Money{Cents: 1}
	}
	return percent(amount, largest)
}

// percent rounds part/whole*100 half away from zero. whole <= 0 gives 0.
func percent(part, whole core.Money) int {
	if whole.Cents <= 0 {
		return 0
	}
	num := decimal.NewFromInt(part.Cents).Mul(hundred)
	return int(num.DivRound(decimal.NewFromInt(whole.Cents), 0).IntPart())
}

// ExpensesByCategory groups expense amounts by category. Only categories
// with at least one expense appear.
func ExpensesByCategory(expenses []core.Expense) map[string]core.Money {
	out := make(map[string]core.Money)
	for _, e := range expenses {
		out[e.Category] = out[e.Category].Add(e.Amount)
	}
	return out
}

// CategoryTotals is ExpensesByCategory in first-appearance order.
func CategoryTotals(expenses []core.Expense) []core.CategoryAmount {
	idx := make(map[string]int)
	var out []core.CategoryAmount
	for _, e := range expenses {
		i, ok := idx[e.Category]
		if !ok {
			i = len(out)
			idx[e.Category] = i
			out = append(out, core.CategoryAmount{Name: e.Category})
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
	}
	return out
}

// MergeCategories lists every project category in project order, defaulting
// missing ones to zero, followed by categories that only occur in expenses
// (sorted by name).
func MergeCategories(categories []string, byCategory map[string]core.Money) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(categories)+len(byCategory))
	seen := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, core.CategoryAmount{Name: c, Amount: byCategory[c]})
	}
	var extra []string
	for name := range byCategory {
		if _, ok := seen[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, core.CategoryAmount{Name: name, Amount: byCategory[name]})
	}
	return out
}

// SortedCategoriesByExpense orders categories by amount, largest first.
// Candidates come from MergeCategories so ties keep project order; zero
// amounts are dropped. limit <= 0 returns everything.
func SortedCategoriesByExpense(byCategory map[string]core.Money, categories []string, limit int) []core.CategoryAmount {
	merged := MergeCategories(categories, byCategory)
	out := merged[:0]
	for _, c := range merged {
		if c.Amount.Cents > 0 {
			out = append(out, c)
		}
	}
	sortByAmountDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortByAmountDesc(items []core.CategoryAmount) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Amount.Cents > items[j].Amount.Cents
	})
}
