// Package chart builds Chart.js line charts for price series.
package chart

import (
	"context"
	"encoding/json"
)

// Renderer draws a line chart on an existing canvas element.
// Implementations report their own failures; callers get nothing back.
type Renderer interface {
	RenderChart(ctx context.Context, targetID string, dates []string, prices []float64)
}

// Palette is the stroke and fill color pair of a chart.
type Palette struct {
	Name   string
	Border string
	Fill   string
}

var (
	Positive = Palette{Name: "positive", Border: "rgba(40, 167, 69, 1)", Fill: "rgba(40, 167, 69, 0.1)"}
	Negative = Palette{Name: "negative", Border: "rgba(220, 53, 69, 1)", Fill: "rgba(220, 53, 69, 0.1)"}
)

// PaletteFor picks Positive when the series ended at or above where it started.
// prices must not be empty.
func PaletteFor(prices []float64) Palette {
	if prices[len(prices)-1] >= prices[0] {
		return Positive
	}
	return Negative
}

// Binding ties a canvas id to the series drawn on it.
type Binding struct {
	TargetID string
	Dates    []string
	Prices   []float64
}

// Mount draws every binding in order.
func Mount(ctx context.Context, r Renderer, bindings []Binding) {
	for _, b := range bindings {
		r.RenderChart(ctx, b.TargetID, b.Dates, b.Prices)
	}
}

// Config mirrors the subset of the Chart.js configuration object we emit.
type Config struct {
	Type    string  `json:"type"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

type Data struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Data            []float64 `json:"data"`
	BorderColor     string    `json:"borderColor"`
	BackgroundColor string    `json:"backgroundColor"`
	BorderWidth     int       `json:"borderWidth"`
	PointRadius     int       `json:"pointRadius"`
	Tension         float64   `json:"tension"`
	Fill            bool      `json:"fill"`
}

type Options struct {
	Responsive          bool            `json:"responsive"`
	MaintainAspectRatio bool            `json:"maintainAspectRatio"`
	Plugins             Plugins         `json:"plugins"`
	Scales              map[string]Axis `json:"scales"`
	Elements            Elements        `json:"elements"`
}

type Plugins struct {
	Legend  Toggle  `json:"legend"`
	Tooltip Tooltip `json:"tooltip"`
}

type Toggle struct {
	Display bool `json:"display"`
}

// Tooltip in index mode shows every dataset at the hovered x position.
type Tooltip struct {
	Mode      string `json:"mode"`
	Intersect bool   `json:"intersect"`
}

type Axis struct {
	Display bool   `json:"display"`
	Title   Toggle `json:"title"`
}

type Elements struct {
	Line Line `json:"line"`
}

type Line struct {
	Tension float64 `json:"tension"`
}

// NewConfig returns the line chart configuration for a price series.
func NewConfig(dates []string, prices []float64) Config {
	p := PaletteFor(prices)
	return Config{
		Type: "line",
		Data: Data{
			Labels: dates,
			Datasets: []Dataset{{
				Data:            prices,
				BorderColor:     p.Border,
				BackgroundColor: p.Fill,
				BorderWidth:     2,
				PointRadius:     3,
				Tension:         0.4,
				Fill:            true,
			}},
		},
		Options: Options{
			Responsive:          true,
			MaintainAspectRatio: false,
			Plugins: Plugins{
				Legend:  Toggle{Display: false},
				Tooltip: Tooltip{Mode: "index", Intersect: false},
			},
			Scales: map[string]Axis{
				"x": {Display: true, Title: Toggle{Display: false}},
				"y": {Display: true, Title: Toggle{Display: false}},
			},
			Elements: Elements{Line: Line{Tension: 0.4}},
		},
	}
}

// JSON encodes the config for embedding in a script.
func (c Config) JSON() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
