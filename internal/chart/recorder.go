package chart

import (
	"context"
	"sync"
)

// Recorder is an in-memory Renderer. It keeps the latest config per canvas id,
// in first-mount order, so a page can replay them later.
type Recorder struct {
	mu      sync.Mutex
	order   []string
	configs map[string]Config
}

func NewRecorder() *Recorder {
	return &Recorder{configs: make(map[string]Config)}
}

func (r *Recorder) RenderChart(_ context.Context, targetID string, dates []string, prices []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.configs[targetID]; !exists {
		r.order = append(r.order, targetID)
	}
	r.configs[targetID] = NewConfig(dates, prices)
}

// Config returns the chart mounted on targetID.
func (r *Recorder) Config(targetID string) (Config, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.configs[targetID]
	return c, ok
}

// Mounted is a canvas id with its chart config.
type Mounted struct {
	TargetID string `json:"targetId"`
	Config   Config `json:"config"`
}

// Charts returns every recorded chart in first-mount order.
func (r *Recorder) Charts() []Mounted {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Mounted, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, Mounted{TargetID: id, Config: r.configs[id]})
	}
	return out
}
