// Package models defines the payloads returned by the analytics backend.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Streak directions reported by /api/auto_trends.
const (
	StreakRise = "rise"
	StreakFall = "fall"
)

// StatusAboveSMA is the only status rendered with "above" styling.
const StatusAboveSMA = "Above SMA"

// DefaultHighLowN is the display count used when the backend omits N.
const DefaultHighLowN = 3

// Count is a whole number the backend may send as 5, 5.0 or "5".
type Count int

func (c *Count) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	if !d.Equal(d.Truncate(0)) {
		return fmt.Errorf("%s is not a whole number", d)
	}
	*c = Count(d.IntPart())
	return nil
}

// TrendItem is one symbol's current streak plus the price history behind it.
type TrendItem struct {
	Symbol     string            `json:"symbol"`
	StreakType string            `json:"streak_type"`
	Days       Count             `json:"days"`
	LastClose  decimal.Decimal   `json:"last_close"`
	AsOf       string            `json:"as_of"`
	Dates      []string          `json:"dates"`
	Prices     []decimal.Decimal `json:"prices"`
}

// Validate checks that the series can be charted.
func (t TrendItem) Validate() error {
	if len(t.Prices) == 0 {
		return fmt.Errorf("%s: empty price series", t.Symbol)
	}
	if len(t.Dates) != len(t.Prices) {
		return fmt.Errorf("%s: %d dates for %d prices", t.Symbol, len(t.Dates), len(t.Prices))
	}
	return nil
}

// MomentumItem is the percentage change of a symbol over the momentum window.
type MomentumItem struct {
	Symbol    string          `json:"symbol"`
	ChangePct decimal.Decimal `json:"change_pct"`
	LastClose decimal.Decimal `json:"last_close"`
	AsOf      string          `json:"as_of"`
}

// HighLowResult holds the top and bottom performers for a period.
type HighLowResult struct {
	Period string         `json:"period"`
	N      *Count         `json:"N,omitempty"`
	High   []MomentumItem `json:"high"`
	Low    []MomentumItem `json:"low"`
}

// EffectiveN returns N, falling back to DefaultHighLowN when it is absent or zero.
func (r HighLowResult) EffectiveN() int {
	if r.N == nil || *r.N == 0 {
		return DefaultHighLowN
	}
	return int(*r.N)
}

// MovingAverageItem compares a symbol's close with its simple moving average.
type MovingAverageItem struct {
	Symbol       string          `json:"symbol"`
	SMAPeriod    Count           `json:"sma_period"`
	Status       string          `json:"status"`
	DeviationPct decimal.Decimal `json:"deviation_pct"`
	LastClose    decimal.Decimal `json:"last_close"`
	LastSMA      decimal.Decimal `json:"last_sma"`
	AsOf         string          `json:"as_of"`
}

// APIErrorPayload is the envelope any endpoint may return instead of its data.
type APIErrorPayload struct {
	Error json.RawMessage `json:"error"`
}

// Message reports the error text and whether the error field is present and truthy.
// Strings are returned verbatim; any other truthy value is returned as its JSON text.
func (p APIErrorPayload) Message() (string, bool) {
	raw := bytes.TrimSpace(p.Error)
	switch string(raw) {
	case "", "null", "false", "0", `""`:
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil && n == 0 {
		return "", false
	}
	return string(raw), true
}
