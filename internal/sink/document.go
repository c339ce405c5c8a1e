// Package sink holds an in-memory rendering surface for headless use and
// static snapshots of the dashboard page.
package sink

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"sync"

	"stockdash/internal/chart"
	"stockdash/internal/dashboard"
)

//go:embed templates/page.tmpl
var pageFS embed.FS

var page = template.Must(template.ParseFS(pageFS, "templates/page.tmpl"))

// Document keeps the latest content of each region. Writes to different
// regions may happen concurrently.
type Document struct {
	mu      sync.Mutex
	order   []string
	regions map[string]template.HTML
}

// NewDocument creates empty regions for ids, or for every dashboard region when none are given.
func NewDocument(ids ...string) *Document {
	if len(ids) == 0 {
		ids = dashboard.Regions()
	}
	d := &Document{regions: make(map[string]template.HTML, len(ids))}
	for _, id := range ids {
		d.order = append(d.order, id)
		d.regions[id] = ""
	}
	return d
}

func (d *Document) Region(id string) dashboard.OutputSink {
	return &region{doc: d, id: id}
}

// Content returns what was last rendered into id.
func (d *Document) Content(id string) template.HTML {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regions[id]
}

type region struct {
	doc *Document
	id  string
}

func (r *region) Render(_ context.Context, content template.HTML) error {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()

	if _, ok := r.doc.regions[r.id]; !ok {
		return fmt.Errorf("no region %q", r.id)
	}
	r.doc.regions[r.id] = content
	return nil
}

type pageRegion struct {
	ID      string
	View    string
	Content template.HTML
}

// WritePage renders the full page with every region and the charts to mount on load.
func (d *Document) WritePage(w io.Writer, title string, charts []chart.Mounted) error {
	return d.writePage(w, title, charts, false)
}

// WriteLivePage is WritePage plus a reload button per view, for pages served
// next to the /views/{name} route.
func (d *Document) WriteLivePage(w io.Writer, title string, charts []chart.Mounted) error {
	return d.writePage(w, title, charts, true)
}

func (d *Document) writePage(w io.Writer, title string, charts []chart.Mounted, live bool) error {
	d.mu.Lock()
	regions := make([]pageRegion, 0, len(d.order))
	for _, id := range d.order {
		view, _ := dashboard.ViewForRegion(id)
		regions = append(regions, pageRegion{ID: id, View: view, Content: d.regions[id]})
	}
	d.mu.Unlock()

	return page.ExecuteTemplate(w, "page", struct {
		Title   string
		Live    bool
		Regions []pageRegion
		Charts  []chart.Mounted
	}{title, live, regions, charts})
}

// WriteFragment renders one region's content followed by its chart mounts,
// for reloading a single view in an already open page.
func (d *Document) WriteFragment(w io.Writer, id string, charts []chart.Mounted) error {
	return page.ExecuteTemplate(w, "fragment", struct {
		Content template.HTML
		Charts  []chart.Mounted
	}{d.Content(id), charts})
}
