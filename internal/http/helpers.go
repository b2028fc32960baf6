package http

import (
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"studioledger/internal/core"
	"studioledger/internal/finance"
)

var templateFuncs = template.FuncMap{
	"money":  func(m core.Money) string { return m.Display() },
	"lakhs":  lakhs,
	"share":  finance.CategoryShare,
	"bar":    finance.BarWidth,
	"health": func(h finance.Health) string { return string(h) },
	"date":   func(d core.Date) string { return d.String() },
	"lower":  strings.ToLower,
}

var lakh = decimal.NewFromInt(100000)

// lakhs abbreviates large figures the way the portfolio cards show them,
// e.g. 2,50,000 becomes "₹2.5L".
func lakhs(m core.Money) string {
	return "₹" + m.Decimal().Div(lakh).StringFixed(1) + "L"
}

// sanitizeInput trims whitespace and removes control characters other than
// tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
