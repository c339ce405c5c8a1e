package dashboard_test

import (
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"stockdash/internal/chart"
	"stockdash/internal/dashboard"
	"stockdash/internal/sink"
	"stockdash/internal/utils"
)

const trendsJSON = `[
	{"symbol": "AAA", "streak_type": "rise", "days": 3, "last_close": 105.5, "as_of": "2024-05-10",
	 "dates": ["2024-05-08", "2024-05-09", "2024-05-10"], "prices": [100, 102, 105]},
	{"symbol": "BBB", "streak_type": "fall", "days": 2, "last_close": 95, "as_of": "2024-05-10",
	 "dates": ["2024-05-09", "2024-05-10"], "prices": [100, 95]},
	{"symbol": "CCC", "streak_type": "rise", "days": 1, "last_close": 100, "as_of": "2024-05-10",
	 "dates": ["2024-05-09", "2024-05-10"], "prices": [100, 100]}
]`

const momentumJSON = `[
	{"symbol": "A", "change_pct": 1.5, "last_close": 10, "as_of": "2024-05-10"},
	{"symbol": "B", "change_pct": -2, "last_close": 20, "as_of": "2024-05-10"},
	{"symbol": "C", "change_pct": 3, "last_close": 30, "as_of": "2024-05-10"},
	{"symbol": "D", "change_pct": 1.5, "last_close": 40, "as_of": "2024-05-10"},
	{"symbol": "E", "change_pct": 0, "last_close": 50, "as_of": "2024-05-10"}
]`

const movingAverageJSON = `[
	{"symbol": "AAA", "sma_period": 20, "status": "Above SMA", "deviation_pct": 2.35,
	 "last_close": 105, "last_sma": 102.59, "as_of": "2024-05-10"},
	{"symbol": "BBB", "sma_period": 20, "status": "Below SMA", "deviation_pct": -1.2,
	 "last_close": 95, "last_sma": 96.15, "as_of": "2024-05-10"},
	{"symbol": "CCC", "sma_period": 20, "status": "At SMA", "deviation_pct": 0,
	 "last_close": 50, "last_sma": 50, "as_of": "2024-05-10"}
]`

// backend serves a fixed status and body for every path.
func backend(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	doc     *sink.Document
	charts  *chart.Recorder
	tracker *utils.PerformanceTracker
	deps    dashboard.Deps
}

func newFixture(baseURL string) *fixture {
	f := &fixture{
		doc:     sink.NewDocument(),
		charts:  chart.NewRecorder(),
		tracker: utils.NewPerformanceTracker(),
	}
	f.deps = dashboard.Deps{
		Client:  dashboard.NewClient(baseURL, 0),
		Surface: f.doc,
		Charts:  f.charts,
		Logger:  utils.NewNopLogger(),
		Tracker: f.tracker,
	}
	return f
}

func (f *fixture) query(t *testing.T, region string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(f.doc.Content(region))))
	require.NoError(t, err)
	return doc
}

func texts(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

// recordingSurface keeps every render of every region, in order.
type recordingSurface struct {
	mu      sync.Mutex
	renders map[string][]template.HTML
}

type sinkFunc func(ctx context.Context, content template.HTML) error

func (f sinkFunc) Render(ctx context.Context, content template.HTML) error { return f(ctx, content) }

func (s *recordingSurface) Region(id string) dashboard.OutputSink {
	return sinkFunc(func(_ context.Context, content template.HTML) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.renders == nil {
			s.renders = make(map[string][]template.HTML)
		}
		s.renders[id] = append(s.renders[id], content)
		return nil
	})
}

func TestAutoTrendsRendersPanelsThenCharts(t *testing.T) {
	srv := backend(t, http.StatusOK, trendsJSON)
	f := newFixture(srv.URL)

	dashboard.NewAutoTrends(f.deps).Load(context.Background())

	doc := f.query(t, dashboard.RegionAutoTrends)
	assert.Equal(t, "Auto Trend Analysis", doc.Find("h2").Text())
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, texts(doc.Find(".stock-symbol")))
	assert.Equal(t, []string{"RISE Streak (3 days)", "FALL Streak (2 days)", "RISE Streak (1 days)"},
		texts(doc.Find(".trend-indicator")))
	assert.True(t, doc.Find(".trend-indicator").Eq(0).HasClass("rise"))
	assert.True(t, doc.Find(".trend-indicator").Eq(1).HasClass("fall"))
	assert.Equal(t, "Last Close: ₹105.5 (2024-05-10)", texts(doc.Find(".info-date"))[0])

	canvases := doc.Find("canvas")
	require.Equal(t, 3, canvases.Length())
	for i, id := range []string{"trendChart-0", "trendChart-1", "trendChart-2"} {
		got, _ := canvases.Eq(i).Attr("id")
		assert.Equal(t, id, got)
	}

	mounted := f.charts.Charts()
	require.Len(t, mounted, 3)
	palettes := []string{chart.Positive.Border, chart.Negative.Border, chart.Positive.Border}
	for i, m := range mounted {
		assert.Equal(t, dashboard.CanvasID(i), m.TargetID)
		assert.Equal(t, palettes[i], m.Config.Data.Datasets[0].BorderColor)
	}
	assert.Equal(t, []float64{100, 102, 105}, mounted[0].Config.Data.Datasets[0].Data)
	assert.Equal(t, []string{"2024-05-09", "2024-05-10"}, mounted[1].Config.Data.Labels)
}

func TestAutoTrendsRejectsMismatchedSeries(t *testing.T) {
	srv := backend(t, http.StatusOK, `[{"symbol": "AAA", "streak_type": "rise", "days": 1,
		"last_close": 1, "as_of": "2024-05-10", "dates": ["2024-05-10"], "prices": []}]`)
	f := newFixture(srv.URL)

	dashboard.NewAutoTrends(f.deps).Load(context.Background())

	doc := f.query(t, dashboard.RegionAutoTrends)
	assert.Contains(t, doc.Find("span.danger").Text(), "Failed: AAA: empty price series")
	assert.Zero(t, doc.Find("canvas").Length())
	assert.Empty(t, f.charts.Charts())
}

func TestLoaderShowsLoadingBeforeResult(t *testing.T) {
	srv := backend(t, http.StatusOK, momentumJSON)
	surface := &recordingSurface{}
	deps := dashboard.Deps{
		Client:  dashboard.NewClient(srv.URL, 0),
		Surface: surface,
	}

	dashboard.NewMomentum(deps).Load(context.Background())

	renders := surface.renders[dashboard.RegionMomentum]
	require.Len(t, renders, 2)
	assert.Equal(t, template.HTML("<h2>All 5-Day Momentum Changes</h2><p>Loading momentum data...</p>"), renders[0])
	assert.NotContains(t, string(renders[1]), "Loading")
}

func TestLoadingStaysWhileRequestIsPending(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(movingAverageJSON))
	}))
	defer srv.Close()
	f := newFixture(srv.URL)

	done := make(chan struct{})
	go func() {
		dashboard.NewMovingAverage(f.deps).Load(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return strings.Contains(string(f.doc.Content(dashboard.RegionMovingAverage)), "Loading 20-Day SMA data...")
	}, time.Second, 5*time.Millisecond)

	close(release)
	<-done
	assert.NotContains(t, string(f.doc.Content(dashboard.RegionMovingAverage)), "Loading")
}

func TestMomentumSortsAndClassifies(t *testing.T) {
	srv := backend(t, http.StatusOK, momentumJSON)
	f := newFixture(srv.URL)

	dashboard.NewMomentum(f.deps).Load(context.Background())

	doc := f.query(t, dashboard.RegionMomentum)
	assert.Equal(t, "All 5-Day Momentum Changes", doc.Find("h2").Text())
	assert.Equal(t, []string{"C", "A", "D", "E", "B"}, texts(doc.Find(".stock-symbol")))
	assert.Equal(t, []string{"+3%", "+1.5%", "+1.5%", "0%", "-2%"}, texts(doc.Find(".momentum-value")))

	values := doc.Find(".momentum-value")
	for i, class := range []string{"rise", "rise", "rise", "rise", "fall"} {
		assert.True(t, values.Eq(i).HasClass(class), "row %d", i)
	}
	assert.Equal(t, "Close: ₹30 (2024-05-10)", texts(doc.Find(".info-date"))[0])
}

func TestHighLowSectionsAreIndependentlyEmpty(t *testing.T) {
	srv := backend(t, http.StatusOK, `{"period": "5-Day", "N": 5,
		"high": [{"symbol": "UP", "change_pct": 4.2, "last_close": 10, "as_of": "2024-05-10"}],
		"low": []}`)
	f := newFixture(srv.URL)

	dashboard.NewHighLow(f.deps).Load(context.Background())

	doc := f.query(t, dashboard.RegionHighLow)
	assert.Equal(t, "🔥 5-Day High/Low Performers (Top/Bottom 5)", doc.Find("h2").Text())

	high := doc.Find(".performers.high")
	low := doc.Find(".performers.low")
	assert.Equal(t, []string{"UP"}, texts(high.Find(".stock-symbol")))
	assert.Zero(t, high.Find("p.empty").Length())
	assert.Equal(t, "No stocks found in this category.", strings.TrimSpace(low.Find("p.empty").Text()))
	assert.Zero(t, low.Find(".stock-item").Length())
}

func TestHighLowDefaultsNAndKeepsServerOrder(t *testing.T) {
	srv := backend(t, http.StatusOK, `{"period": "10-Day",
		"high": [],
		"low": [
			{"symbol": "L1", "change_pct": -1, "last_close": 10, "as_of": "2024-05-10"},
			{"symbol": "L2", "change_pct": -5, "last_close": 10, "as_of": "2024-05-10"},
			{"symbol": "L3", "change_pct": 0, "last_close": 10, "as_of": "2024-05-10"}
		]}`)
	f := newFixture(srv.URL)

	dashboard.NewHighLow(f.deps).Load(context.Background())

	doc := f.query(t, dashboard.RegionHighLow)
	assert.Equal(t, "🔥 10-Day High/Low Performers (Top/Bottom 3)", doc.Find("h2").Text())
	assert.Equal(t, 1, doc.Find(".performers.high p.empty").Length())
	assert.Equal(t, []string{"L1", "L2", "L3"}, texts(doc.Find(".performers.low .stock-symbol")))
	assert.Equal(t, []string{"-1%", "-5%", "0%"}, texts(doc.Find(".performers.low .momentum-value")))
}

func TestHighLowAcceptsWholeFloatN(t *testing.T) {
	srv := backend(t, http.StatusOK, `{"period": "5-Day", "N": 5.0, "high": [], "low": []}`)
	f := newFixture(srv.URL)

	dashboard.NewHighLow(f.deps).Load(context.Background())

	doc := f.query(t, dashboard.RegionHighLow)
	assert.Equal(t, "🔥 5-Day High/Low Performers (Top/Bottom 5)", doc.Find("h2").Text())
	assert.Zero(t, doc.Find("span.danger").Length())
}

func TestHighLowNullListShowsPlaceholder(t *testing.T) {
	srv := backend(t, http.StatusOK, `{"period": "5-Day", "N": 5, "high": null,
		"low": [{"symbol": "DN", "change_pct": -4.2, "last_close": 10, "as_of": "2024-05-10"}]}`)
	f := newFixture(srv.URL)

	dashboard.NewHighLow(f.deps).Load(context.Background())

	doc := f.query(t, dashboard.RegionHighLow)
	assert.Zero(t, doc.Find("span.danger").Length())
	assert.Equal(t, "No stocks found in this category.", strings.TrimSpace(doc.Find(".performers.high p.empty").Text()))
	assert.Equal(t, []string{"DN"}, texts(doc.Find(".performers.low .stock-symbol")))
}

func TestWholeFloatCountsRender(t *testing.T) {
	srv := backend(t, http.StatusOK, `[{"symbol": "AAA", "streak_type": "rise", "days": 3.0, "last_close": 2,
		"as_of": "2024-05-10", "dates": ["2024-05-09", "2024-05-10"], "prices": [1, 2]}]`)
	f := newFixture(srv.URL)
	dashboard.NewAutoTrends(f.deps).Load(context.Background())
	assert.Equal(t, []string{"RISE Streak (3 days)"}, texts(f.query(t, dashboard.RegionAutoTrends).Find(".trend-indicator")))

	srv = backend(t, http.StatusOK, `[{"symbol": "AAA", "sma_period": 20.0, "status": "Above SMA",
		"deviation_pct": 1, "last_close": 1, "last_sma": 1, "as_of": "2024-05-10"}]`)
	f = newFixture(srv.URL)
	dashboard.NewMovingAverage(f.deps).Load(context.Background())
	assert.Equal(t, "📈 20-Day Moving Average (SMA)", f.query(t, dashboard.RegionMovingAverage).Find("h2").Text())
}

func TestMovingAverageRendersPeriodAndStatus(t *testing.T) {
	srv := backend(t, http.StatusOK, movingAverageJSON)
	f := newFixture(srv.URL)

	dashboard.NewMovingAverage(f.deps).Load(context.Background())

	doc := f.query(t, dashboard.RegionMovingAverage)
	assert.Equal(t, "📈 20-Day Moving Average (SMA)", doc.Find("h2").Text())
	assert.Equal(t, 1, doc.Find(".status-above").Length())
	assert.Equal(t, []string{"Below SMA", "At SMA"}, texts(doc.Find(".status-below")))
	assert.Equal(t, []string{"+2.35%", "-1.2%", "0%"}, texts(doc.Find(".momentum-value")))
	assert.True(t, doc.Find(".momentum-value").Eq(2).HasClass("rise"))
	assert.Equal(t, "Close: ₹105 | SMA: ₹102.59 (2024-05-10)", texts(doc.Find(".info-date"))[0])
}

func TestMovingAverageHeadingFollowsFirstItem(t *testing.T) {
	srv := backend(t, http.StatusOK, `[{"symbol": "AAA", "sma_period": 50, "status": "Above SMA",
		"deviation_pct": 1, "last_close": 1, "last_sma": 1, "as_of": "2024-05-10"}]`)
	f := newFixture(srv.URL)

	dashboard.NewMovingAverage(f.deps).Load(context.Background())

	assert.Equal(t, "📈 50-Day Moving Average (SMA)", f.query(t, dashboard.RegionMovingAverage).Find("h2").Text())
}

func TestMovingAverageEmptyIsAFailure(t *testing.T) {
	srv := backend(t, http.StatusOK, `[]`)
	f := newFixture(srv.URL)

	dashboard.NewMovingAverage(f.deps).Load(context.Background())

	doc := f.query(t, dashboard.RegionMovingAverage)
	assert.Equal(t, "20-Day Moving Average (SMA)", doc.Find("h2").Text())
	assert.Equal(t, "Failed: moving average payload is empty", doc.Find("span.danger").Text())
}

func TestApplicationErrorRendersMessageOnly(t *testing.T) {
	srv := backend(t, http.StatusOK, `{"error": "X"}`)
	f := newFixture(srv.URL)

	dashboard.New(f.deps).LoadAll(context.Background())

	for _, region := range dashboard.Regions() {
		doc := f.query(t, region)
		assert.Equal(t, "X", doc.Find("span.danger").Text(), region)
		assert.Zero(t, doc.Find(".stock-item").Length(), region)
		assert.Zero(t, doc.Find("p").Length(), region)
	}
	assert.Empty(t, f.charts.Charts())
}

func TestTransportErrorShowsStatusAndBody(t *testing.T) {
	srv := backend(t, http.StatusInternalServerError, "boom")
	f := newFixture(srv.URL)

	dashboard.New(f.deps).LoadAll(context.Background())

	for _, region := range dashboard.Regions() {
		msg := f.query(t, region).Find("span.danger").Text()
		assert.Equal(t, "Failed: Server error (500): boom", msg, region)
	}
}

func TestErrorHeadings(t *testing.T) {
	srv := backend(t, http.StatusBadGateway, "down")
	f := newFixture(srv.URL)

	dashboard.New(f.deps).LoadAll(context.Background())

	headings := map[string]string{
		dashboard.RegionAutoTrends:    "Auto Trend Analysis",
		dashboard.RegionMomentum:      "All 5-Day Momentum Changes",
		dashboard.RegionHighLow:       "5-Day High/Low Performers",
		dashboard.RegionMovingAverage: "20-Day Moving Average (SMA)",
	}
	for region, heading := range headings {
		assert.Equal(t, heading, f.query(t, region).Find("h2").Text(), region)
	}
}

func TestNetworkFailureIsRenderedAndLogged(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	f := newFixture(baseURL)
	f.deps.Logger = utils.NewLoggerWithCore(core)

	dashboard.NewMomentum(f.deps).Load(context.Background())

	msg := f.query(t, dashboard.RegionMomentum).Find("span.danger").Text()
	assert.True(t, strings.HasPrefix(msg, "Failed: "), msg)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).FilterMessageSnippet("error fetching momentum").Len())
}

func TestPayloadDumpedOnlyAtDebug(t *testing.T) {
	srv := backend(t, http.StatusOK, momentumJSON)

	for level, want := range map[zapcore.Level]int{zapcore.DebugLevel: 1, zapcore.InfoLevel: 0} {
		core, logs := observer.New(level)
		f := newFixture(srv.URL)
		f.deps.Logger = utils.NewLoggerWithCore(core)

		dashboard.NewMomentum(f.deps).Load(context.Background())

		assert.Equal(t, want, logs.FilterMessageSnippet("momentum payload").Len(), level.String())
	}
}

func TestInvalidJSONIsRenderedAsFailure(t *testing.T) {
	srv := backend(t, http.StatusOK, "<html>gateway</html>")
	f := newFixture(srv.URL)

	dashboard.NewHighLow(f.deps).Load(context.Background())

	msg := f.query(t, dashboard.RegionHighLow).Find("span.danger").Text()
	assert.True(t, strings.HasPrefix(msg, "Failed: invalid character"), msg)
}

func TestReloadIsIdempotent(t *testing.T) {
	srv := backend(t, http.StatusOK, trendsJSON)
	f := newFixture(srv.URL)
	loader := dashboard.NewAutoTrends(f.deps)

	loader.Load(context.Background())
	first := f.doc.Content(dashboard.RegionAutoTrends)
	loader.Load(context.Background())

	assert.Equal(t, first, f.doc.Content(dashboard.RegionAutoTrends))
	assert.Len(t, f.charts.Charts(), 3)
	assert.Equal(t, 3, f.query(t, dashboard.RegionAutoTrends).Find("canvas").Length())
}

func TestFailureReplacesPreviousSuccess(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := int(status.Load())
		w.WriteHeader(code)
		if code == http.StatusOK {
			w.Write([]byte(momentumJSON))
			return
		}
		w.Write([]byte("boom"))
	}))
	defer srv.Close()
	f := newFixture(srv.URL)
	loader := dashboard.NewMomentum(f.deps)

	loader.Load(context.Background())
	require.Equal(t, 5, f.query(t, dashboard.RegionMomentum).Find(".stock-item").Length())

	status.Store(http.StatusInternalServerError)
	loader.Load(context.Background())

	doc := f.query(t, dashboard.RegionMomentum)
	assert.Zero(t, doc.Find(".stock-item").Length())
	assert.Equal(t, "Failed: Server error (500): boom", doc.Find("span.danger").Text())
}

func TestDashboardLoadByName(t *testing.T) {
	srv := backend(t, http.StatusOK, momentumJSON)
	f := newFixture(srv.URL)
	d := dashboard.New(f.deps)

	assert.Equal(t, []string{"auto_trends", "momentum", "high_low_performers", "moving_average"}, d.Names())
	require.NoError(t, d.Load(context.Background(), dashboard.ViewMomentum))
	assert.Equal(t, 5, f.query(t, dashboard.RegionMomentum).Find(".stock-item").Length())
	assert.Empty(t, f.doc.Content(dashboard.RegionAutoTrends))

	assert.Error(t, d.Load(context.Background(), "volume"))
}

func TestLoadAllTracksEveryStep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auto_trends":
			w.Write([]byte(trendsJSON))
		case "/api/momentum":
			w.Write([]byte(momentumJSON))
		case "/api/high_low_performers":
			w.Write([]byte(`{"period": "5-Day", "high": [], "low": []}`))
		case "/api/moving_average":
			w.Write([]byte(movingAverageJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	f := newFixture(srv.URL)

	dashboard.New(f.deps).LoadAll(context.Background())

	for _, region := range dashboard.Regions() {
		doc := f.query(t, region)
		assert.Zero(t, doc.Find("span.danger").Length(), region)
		assert.NotContains(t, string(f.doc.Content(region)), "Loading", region)
	}
	for _, name := range []string{"auto_trends", "momentum", "high_low_performers", "moving_average"} {
		for _, step := range []string{"fetch:", "decode:", "render:"} {
			agg, ok := f.tracker.Aggregate(step + name)
			assert.True(t, ok, step+name)
			assert.Equal(t, 1, agg.Count, step+name)
		}
	}
}
