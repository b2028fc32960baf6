package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Health is the margin band a project falls in.
type Health string

const (
	HealthLow     Health = "low"
	HealthFair    Health = "fair"
	HealthHealthy Health = "healthy"
)

// Thresholds bound the margin bands: below Low is low, above Healthy is healthy.
type Thresholds struct {
	Low     int `toml:"low"`
	Healthy int `toml:"healthy"`
}

// DefaultThresholds puts margins under 20% in low and over 30% in healthy.
var DefaultThresholds = Thresholds{Low: 20, Healthy: 30}

// HealthOf bands margin against th. A margin equal to either bound is fair.
func HealthOf(margin int, th Thresholds) Health {
	switch {
	case margin < th.Low:
		return HealthLow
	case margin > th.Healthy:
		return HealthHealthy
	default:
		return HealthFair
	}
}

// Insights is the highlight block of the portfolio page.
type Insights struct {
	TopProjects     []RankedProject `json:"topProjects"`
	TopCategories   []string        `json:"topCategories"`
	Recommendations []string        `json:"recommendations"`
	Health          Health          `json:"health"`
}

const insightCount = 3

// BuildInsights picks the best projects and costliest categories and turns
// them into recommendations.
func BuildInsights(pf Portfolio, th Thresholds) Insights {
	avg := decimal.NewFromFloat(pf.AverageMargin).Round(0).IntPart()
	in := Insights{Health: HealthOf(int(avg), th)}

	in.TopProjects = pf.Ranking
	if len(in.TopProjects) > insightCount {
		in.TopProjects = in.TopProjects[:insightCount]
	}
	for i, c := range pf.TopCategories {
		if i == insightCount {
			break
		}
		in.TopCategories = append(in.TopCategories, c.Name)
	}

	if pf.ProjectCount == 0 {
		in.Recommendations = []string{"Add more projects to get personalized insights"}
		return in
	}
	if len(pf.TopCategories) > 0 {
		in.Recommendations = append(in.Recommendations,
			fmt.Sprintf("Optimize %s expenses, it is your highest cost category", pf.TopCategories[0].Name))
	}
	var low int
	for _, r := range pf.Ranking {
		if r.Margin < th.Low {
			low++
		}
	}
	if low > 0 {
		in.Recommendations = append(in.Recommendations,
			fmt.Sprintf("Review pricing on %d project(s) with margins below %d%%", low, th.Low))
	}
	if best := pf.Ranking[0]; best.Margin > th.Healthy {
		in.Recommendations = append(in.Recommendations,
			fmt.Sprintf("Replicate the approach used for %s (%d%% margin)", best.CustomerName, best.Margin))
	}
	return in
}
