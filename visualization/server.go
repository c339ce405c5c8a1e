// Package visualization serves the dashboard over HTTP: the full page rendered
// on request, an empty shell for a live browser to fill, and single-view reloads.
package visualization

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"stockdash/internal/chart"
	"stockdash/internal/dashboard"
	"stockdash/internal/sink"
	"stockdash/internal/utils"
)

// PageTitle is the title of every full dashboard page.
const PageTitle = "Stock Analytics Dashboard"

type Server struct {
	client  *dashboard.Client
	logger  *utils.Logger
	tracker *utils.PerformanceTracker
}

func NewServer(client *dashboard.Client, logger *utils.Logger, tracker *utils.PerformanceTracker) *Server {
	return &Server{client: client, logger: logger, tracker: tracker}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /shell", s.handleShell)
	mux.HandleFunc("GET /views/{name}", s.handleView)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	return mux
}

// render builds a dashboard that writes into a fresh document for one request.
func (s *Server) render() (*dashboard.Dashboard, *sink.Document, *chart.Recorder) {
	doc := sink.NewDocument()
	charts := chart.NewRecorder()
	d := dashboard.New(dashboard.Deps{
		Client:  s.client,
		Surface: doc,
		Charts:  charts,
		Logger:  s.logger,
		Tracker: s.tracker,
	})
	return d, doc, charts
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	d, doc, charts := s.render()
	d.LoadAll(r.Context())

	var buf bytes.Buffer
	if err := doc.WriteLivePage(&buf, PageTitle, charts.Charts()); err != nil {
		s.logger.Error("Failed to render page: %v", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	writeHTML(w, buf.Bytes())
}

func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := sink.NewDocument().WriteLivePage(&buf, PageTitle, nil); err != nil {
		s.logger.Error("Failed to render shell: %v", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	writeHTML(w, buf.Bytes())
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	d, doc, charts := s.render()
	name := r.PathValue("name")

	l, ok := d.Loader(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	l.Load(r.Context())

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, viewPayload{
			View:   name,
			Region: l.Region(),
			HTML:   string(doc.Content(l.Region())),
			Charts: charts.Charts(),
		})
		return
	}

	var buf bytes.Buffer
	if err := doc.WriteFragment(&buf, l.Region(), charts.Charts()); err != nil {
		s.logger.Error("Failed to render %s: %v", name, err)
		http.Error(w, "failed to render view", http.StatusInternalServerError)
		return
	}
	writeHTML(w, buf.Bytes())
}

// viewPayload is the JSON form of a single view reload. Charts are mounted by
// the page after html is in place, since scripts set through innerHTML never run.
type viewPayload struct {
	View   string          `json:"view"`
	Region string          `json:"region"`
	HTML   string          `json:"html"`
	Charts []chart.Mounted `json:"charts"`
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode view", http.StatusInternalServerError)
	}
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}
