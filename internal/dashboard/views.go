package dashboard

import (
	"errors"
	"html/template"

	"stockdash/internal/chart"
	"stockdash/models"
)

// View names, as used by Dashboard.Load and the /views/{name} route.
const (
	ViewAutoTrends    = "auto_trends"
	ViewMomentum      = "momentum"
	ViewHighLow       = "high_low_performers"
	ViewMovingAverage = "moving_average"
)

// ViewForRegion returns the name of the view that renders into region.
func ViewForRegion(region string) (string, bool) {
	switch region {
	case RegionAutoTrends:
		return ViewAutoTrends, true
	case RegionMomentum:
		return ViewMomentum, true
	case RegionHighLow:
		return ViewHighLow, true
	case RegionMovingAverage:
		return ViewMovingAverage, true
	}
	return "", false
}

// NewAutoTrends renders one panel and one price chart per streak.
func NewAutoTrends(deps Deps) Loader {
	return &view[[]models.TrendItem]{
		name:     ViewAutoTrends,
		region:   RegionAutoTrends,
		endpoint: "/api/auto_trends",
		titles: titles{
			loading:     "Auto Trend Analysis",
			loadingText: "Loading Auto Trend Data...",
			failure:     "Auto Trend Analysis",
		},
		render: renderAutoTrends,
		deps:   deps.withDefaults(),
	}
}

func renderAutoTrends(items []models.TrendItem) (template.HTML, []chart.Binding, error) {
	bindings := make([]chart.Binding, 0, len(items))
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return "", nil, err
		}
		bindings = append(bindings, chart.Binding{
			TargetID: CanvasID(i),
			Dates:    item.Dates,
			Prices:   prices(item.Prices),
		})
	}

	content, err := execute("autoTrends", items)
	if err != nil {
		return "", nil, err
	}
	return content, bindings, nil
}

// NewMomentum lists every symbol's momentum, strongest first.
func NewMomentum(deps Deps) Loader {
	return &view[[]models.MomentumItem]{
		name:     ViewMomentum,
		region:   RegionMomentum,
		endpoint: "/api/momentum",
		titles: titles{
			loading:     "All 5-Day Momentum Changes",
			loadingText: "Loading momentum data...",
			failure:     "All 5-Day Momentum Changes",
		},
		render: func(items []models.MomentumItem) (template.HTML, []chart.Binding, error) {
			content, err := execute("momentum", SortByChange(items))
			return content, nil, err
		},
		deps: deps.withDefaults(),
	}
}

// NewHighLow renders the top and bottom performers in separate sections.
func NewHighLow(deps Deps) Loader {
	return &view[models.HighLowResult]{
		name:     ViewHighLow,
		region:   RegionHighLow,
		endpoint: "/api/high_low_performers",
		titles: titles{
			loading:     "🔥 5-Day High/Low Performers",
			loadingText: "Loading high/low performance data...",
			failure:     "5-Day High/Low Performers",
		},
		render: func(result models.HighLowResult) (template.HTML, []chart.Binding, error) {
			content, err := execute("highLow", result)
			return content, nil, err
		},
		deps: deps.withDefaults(),
	}
}

var errEmptyMovingAverage = errors.New("moving average payload is empty")

// NewMovingAverage shows where each close sits relative to its SMA.
// Every item is expected to share the first item's sma_period.
func NewMovingAverage(deps Deps) Loader {
	return &view[[]models.MovingAverageItem]{
		name:     ViewMovingAverage,
		region:   RegionMovingAverage,
		endpoint: "/api/moving_average",
		titles: titles{
			loading:     "📈 20-Day Moving Average (SMA)",
			loadingText: "Loading 20-Day SMA data...",
			failure:     "20-Day Moving Average (SMA)",
		},
		render: renderMovingAverage,
		deps:   deps.withDefaults(),
	}
}

func renderMovingAverage(items []models.MovingAverageItem) (template.HTML, []chart.Binding, error) {
	if len(items) == 0 {
		return "", nil, errEmptyMovingAverage
	}
	content, err := execute("movingAverage", struct {
		Period int
		Items  []models.MovingAverageItem
	}{int(items[0].SMAPeriod), items})
	return content, nil, err
}
