package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"studioledger/internal/core"
	"studioledger/internal/finance"
)

func sampleProject() core.Project {
	return core.Project{
		ID:           "p1",
		CustomerName: "Mehta",
		Location:     "Pune",
		SquareFeet:   1200,
		QuotedPrice:  core.NewMoney(100000),
		Categories:   []string{"Furniture", "Lighting", "Paint"},
		Payments: []core.Payment{
			{Amount: core.NewMoney(40000), Date: core.NewDate(2024, 3, 1), Note: "advance"},
		},
		Expenses: []core.Expense{
			{Category: "Lighting", Amount: core.NewMoney(10000), Date: core.NewDate(2024, 3, 2)},
			{Category: "Furniture", Amount: core.NewMoney(20000), Date: core.NewDate(2024, 3, 3)},
		},
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Title:   "Totals",
		Headers: []string{"Figure", "Value"},
		Rows: [][]string{
			{"Quoted", "₹1,00,000"},
			{separator},
			{"Profit", "₹70,000"},
		},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, "Totals", strings.TrimSpace(lines[0]))
	assert.Len(t, lines, 8)

	// Every bordered line has the same display width.
	width := len([]rune(lines[1]))
	for _, l := range lines[1:] {
		assert.Equal(t, width, len([]rune(l)), l)
	}
	assert.Contains(t, out, "│ Quoted │ ₹1,00,000 │")
	assert.Contains(t, out, "│ Profit │   ₹70,000 │")
}

func TestRenderTableEmpty(t *testing.T) {
	assert.Equal(t, "", RenderTable(Table{}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Sharm…", truncate("Sharma Residence", 6))
}

func TestProjects(t *testing.T) {
	out := Projects([]core.Project{sampleProject()}, finance.DefaultThresholds)
	assert.Contains(t, out, "PROJECTS  1 total")
	assert.Contains(t, out, "Mehta")
	assert.Contains(t, out, "₹1,00,000")
	assert.Contains(t, out, "₹40,000")
	assert.Contains(t, out, "₹30,000")
	assert.Contains(t, out, "70%")

	assert.Contains(t, Projects(nil, finance.DefaultThresholds), "No projects yet.")
}

func TestProject(t *testing.T) {
	out := Project(sampleProject(), finance.DefaultThresholds)
	assert.Contains(t, out, "MEHTA")
	assert.Contains(t, out, "1200 sq ft")
	assert.Contains(t, out, "₹40,000 (40%)")
	assert.Contains(t, out, "₹60,000")
	assert.Contains(t, out, "70% healthy")
	assert.Contains(t, out, "advance")

	// Categories come largest first and unspent ones are left out.
	furniture := strings.Index(out, "Furniture")
	lighting := strings.Index(out, "Lighting")
	assert.True(t, furniture > 0 && lighting > furniture)
	assert.NotContains(t, out, "Paint")
}

func TestSummary(t *testing.T) {
	second := sampleProject()
	second.ID = "p2"
	second.CustomerName = "Rao"
	second.Expenses = []core.Expense{{Category: "Paint", Amount: core.NewMoney(90000), Date: core.NewDate(2024, 4, 1)}}

	projects := []core.Project{sampleProject(), second}
	pf := finance.Rollup(projects)
	out := Summary(pf, finance.BuildInsights(pf, finance.DefaultThresholds))

	assert.Contains(t, out, "PORTFOLIO SUMMARY")
	assert.Contains(t, out, "Average margin")
	assert.Contains(t, out, "40.0%")
	assert.Less(t, strings.Index(out, "1. Mehta"), strings.Index(out, "2. Rao"))
	assert.Contains(t, out, "Top categories")
}
