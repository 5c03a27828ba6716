// Package flow derives live traffic-flow metrics from per-second vehicle
// counts: an exponentially smoothed vehicles-per-second figure and its rate
// of change, fitted over a sliding window.
package flow

import (
	"sync"

	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultAlpha is the EMA smoothing factor; higher values weigh the
	// newest sample more.
	DefaultAlpha = 0.3

	// DefaultWindow is the number of recent samples the rate-of-change
	// regression is fitted over.
	DefaultWindow = 30
)

// Metrics is one snapshot of a tracker.
type Metrics struct {
	// Samples is how many one-second observations have been recorded.
	Samples int `json:"samples"`

	// PerSecond is the EMA-smoothed vehicles-per-second figure.
	PerSecond float64 `json:"per_second"`

	// RateOfChange is the least-squares slope of the smoothed figure over
	// the sliding window, in vehicles per second per second. Positive
	// means traffic is building.
	RateOfChange float64 `json:"rate_of_change"`

	// Peak is the largest raw per-second count seen.
	Peak int `json:"peak"`
}

// Tracker accumulates per-second counts. Safe for concurrent use.
type Tracker struct {
	alpha  float64
	window int

	mu      sync.Mutex
	ema     float64
	primed  bool
	recent  []float64 // smoothed values, capped at window
	samples int
	peak    int
}

// NewTracker returns a tracker with the given smoothing factor and window
// length. Out-of-range values select the defaults.
func NewTracker(alpha float64, window int) *Tracker {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	if window < 2 {
		window = DefaultWindow
	}
	return &Tracker{alpha: alpha, window: window}
}

// Record adds one second's vehicle count. The first sample seeds the EMA
// directly.
func (t *Tracker) Record(count int) {
	if count < 0 {
		count = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	c := float64(count)
	if !t.primed {
		t.ema = c
		t.primed = true
	} else {
		t.ema = t.alpha*c + (1-t.alpha)*t.ema
	}

	t.recent = append(t.recent, t.ema)
	if len(t.recent) > t.window {
		t.recent = t.recent[1:]
	}
	t.samples++
	if count > t.peak {
		t.peak = count
	}
}

// Snapshot returns the current metrics.
func (t *Tracker) Snapshot() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := Metrics{
		Samples:   t.samples,
		PerSecond: t.ema,
		Peak:      t.peak,
	}
	if len(t.recent) >= 2 {
		xs := make([]float64, len(t.recent))
		for i := range xs {
			xs[i] = float64(i)
		}
		_, slope := stat.LinearRegression(xs, t.recent, nil, false)
		m.RateOfChange = slope
	}
	return m
}
