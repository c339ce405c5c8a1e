package dashboard

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"

	"github.com/google/uuid"
	"github.com/tidwall/pretty"

	"stockdash/internal/chart"
	"stockdash/internal/utils"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var views = template.Must(template.New("views").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl"))

// Deps are the collaborators shared by every loader. Loaders never share state
// through them beyond what each collaborator itself guards.
type Deps struct {
	Client  *Client
	Surface Surface
	Charts  chart.Renderer
	Logger  *utils.Logger
	Tracker *utils.PerformanceTracker
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = utils.NewNopLogger()
	}
	if d.Charts == nil {
		d.Charts = chart.NewRecorder()
	}
	return d
}

// Loader fetches one view and renders it into its region.
type Loader interface {
	Name() string
	Region() string
	// Load never returns an error; failures end up in the region and the log.
	Load(ctx context.Context)
}

type titles struct {
	loading     string
	loadingText string
	failure     string
}

// view is the fetch, decode and render pipeline shared by all loaders.
// render turns a decoded payload into markup plus the charts to mount once
// that markup is in place.
type view[T any] struct {
	name     string
	region   string
	endpoint string
	titles   titles
	render   func(T) (template.HTML, []chart.Binding, error)
	deps     Deps
}

func (v *view[T]) Name() string   { return v.name }
func (v *view[T]) Region() string { return v.region }

func (v *view[T]) Load(ctx context.Context) {
	runID := uuid.NewString()
	logger := v.deps.Logger
	out := v.deps.Surface.Region(v.region)

	logger.Debug("[%s] loading %s from %s", runID, v.name, v.endpoint)
	v.show(ctx, runID, out, "loading", v.titles.loading, v.titles.loadingText)

	done := v.deps.Tracker.StartStep("fetch:" + v.name)
	body, err := v.deps.Client.Get(ctx, v.endpoint)
	done()
	if err != nil {
		logger.Error("[%s] error fetching %s: %v", runID, v.name, err)
		v.show(ctx, runID, out, "failure", v.titles.failure, "Failed: "+err.Error())
		return
	}

	var data T
	done = v.deps.Tracker.StartStep("decode:" + v.name)
	err = decode(body, &data)
	done()

	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		logger.Info("[%s] backend reported an error for %s: %s", runID, v.name, appErr.Message)
		v.show(ctx, runID, out, "failure", v.titles.failure, appErr.Message)
		return
	}
	if err != nil {
		logger.Error("[%s] error decoding %s: %v", runID, v.name, err)
		v.show(ctx, runID, out, "failure", v.titles.failure, "Failed: "+err.Error())
		return
	}
	if logger.DebugEnabled() {
		logger.Debug("[%s] %s payload:\n%s", runID, v.name, pretty.Pretty(body))
	}

	done = v.deps.Tracker.StartStep("render:" + v.name)
	defer done()

	content, bindings, err := v.render(data)
	if err != nil {
		logger.Error("[%s] error rendering %s: %v", runID, v.name, err)
		v.show(ctx, runID, out, "failure", v.titles.failure, "Failed: "+err.Error())
		return
	}
	if err := out.Render(ctx, content); err != nil {
		logger.Error("[%s] failed to write %s: %v", runID, v.region, err)
		return
	}

	// Charts need their canvases in the region, so they go on after the markup.
	chart.Mount(ctx, v.deps.Charts, bindings)
	logger.Debug("[%s] rendered %s with %d charts", runID, v.name, len(bindings))
}

func (v *view[T]) show(ctx context.Context, runID string, out OutputSink, tmpl, heading, text string) {
	content, err := execute(tmpl, struct{ Heading, Text string }{heading, text})
	if err != nil {
		v.deps.Logger.Error("[%s] failed to render %s state: %v", runID, tmpl, err)
		return
	}
	if err := out.Render(ctx, content); err != nil {
		v.deps.Logger.Error("[%s] failed to write %s: %v", runID, v.region, err)
	}
}

func execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := views.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
