package dashboard

import (
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"stockdash/models"
)

// ChangeClass colors zero as a rise.
func ChangeClass(pct decimal.Decimal) string {
	if pct.Sign() >= 0 {
		return "rise"
	}
	return "fall"
}

// SignPrefix is "+" for strictly positive values only. Negative numbers
// print their own minus sign and zero gets none.
func SignPrefix(pct decimal.Decimal) string {
	if pct.Sign() > 0 {
		return "+"
	}
	return ""
}

func TrendClass(streakType string) string {
	if streakType == models.StreakRise {
		return "rise"
	}
	return "fall"
}

// StatusClass keys on the exact "Above SMA" label; anything else is below.
func StatusClass(status string) string {
	if status == models.StatusAboveSMA {
		return "status-above"
	}
	return "status-below"
}

// CanvasID is the id of the chart canvas for the trend at index.
func CanvasID(index int) string {
	return fmt.Sprintf("trendChart-%d", index)
}

// SortByChange returns items ordered by change_pct, highest first.
// Equal values keep their original relative order.
func SortByChange(items []models.MomentumItem) []models.MomentumItem {
	sorted := make([]models.MomentumItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ChangePct.GreaterThan(sorted[j].ChangePct)
	})
	return sorted
}

func prices(values []decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.InexactFloat64()
	}
	return out
}

var funcs = template.FuncMap{
	"changeClass": ChangeClass,
	"sign":        SignPrefix,
	"trendClass":  TrendClass,
	"statusClass": StatusClass,
	"canvasID":    CanvasID,
	"upper":       strings.ToUpper,
}
