package dashboard

import (
	"context"
	"html/template"
)

// Region ids written by the loaders.
const (
	RegionAutoTrends    = "autoTrends"
	RegionMomentum      = "momentumResult"
	RegionHighLow       = "highLowResult"
	RegionMovingAverage = "movingAverageResult"
)

// Regions lists every region in page order.
func Regions() []string {
	return []string{RegionAutoTrends, RegionMomentum, RegionHighLow, RegionMovingAverage}
}

// OutputSink replaces the whole content of one region.
type OutputSink interface {
	Render(ctx context.Context, content template.HTML) error
}

// Surface hands out the sink for a named region.
type Surface interface {
	Region(id string) OutputSink
}
