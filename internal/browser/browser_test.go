package browser

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"stockdash/internal/chart"
	"stockdash/internal/utils"
)

func TestSetContentScriptQuotesInput(t *testing.T) {
	html := `<h2>"quoted"</h2>` + "\n<p>x</p>"
	script, err := setContentScript("momentumResult", html)
	require.NoError(t, err)

	htmlJSON, err := json.Marshal(html)
	require.NoError(t, err)

	assert.Contains(t, script, `document.getElementById("momentumResult")`)
	assert.Contains(t, script, "el.innerHTML = "+string(htmlJSON)+";")
	assert.NotContains(t, script, "\n<p>")
	assert.Contains(t, script, "if (!el) return false;")
}

func TestMountChartScriptEmbedsConfig(t *testing.T) {
	cfg := chart.NewConfig([]string{"2024-05-09", "2024-05-10"}, []float64{100, 95})
	script, err := mountChartScript("trendChart-1", cfg)
	require.NoError(t, err)

	cfgJSON, err := cfg.JSON()
	require.NoError(t, err)

	assert.Contains(t, script, `document.getElementById("trendChart-1")`)
	assert.Contains(t, script, "new Chart(el.getContext('2d'), "+cfgJSON+");")
	assert.True(t, strings.Contains(script, chart.Negative.Border))
}

func TestShellScriptListsRegions(t *testing.T) {
	script, err := shellScript([]string{"autoTrends", "momentumResult"})
	require.NoError(t, err)

	assert.Contains(t, script, `["autoTrends","momentumResult"].filter(id => !document.getElementById(id))`)
	assert.Contains(t, script, `typeof Chart !== "undefined"`)
}

func TestCheckShell(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := &Page{logger: utils.NewLoggerWithCore(core)}

	assert.NoError(t, p.checkShell(shellStatus{ChartJS: true}))
	assert.Zero(t, logs.Len())

	err := p.checkShell(shellStatus{Missing: []string{"highLowResult"}, ChartJS: true})
	assert.EqualError(t, err, "shell is missing regions [highLowResult]")

	assert.NoError(t, p.checkShell(shellStatus{}))
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).FilterMessageSnippet("Chart.js did not load").Len())
}
