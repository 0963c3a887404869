package connector

import (
	"sync"
	"time"
)

// AdaptiveTimeout derives each call's timeout from a rolling average of past
// response times, bounded to a sane minimum and maximum. A connector that has
// seen only fast responses tightens its deadline; one that has seen slow
// responses loosens it, so a single slow provider does not fail every call.
type AdaptiveTimeout struct {
	mu      sync.Mutex
	min     time.Duration
	max     time.Duration
	factor  float64
	samples []time.Duration
	window  int
}

// NewAdaptiveTimeout creates an adaptive timeout bounded to [min, max].
// The next timeout is factor times the rolling average over the last few
// observations; before any observation it returns max.
func NewAdaptiveTimeout(min, max time.Duration, factor float64) *AdaptiveTimeout {
	if factor <= 0 {
		factor = 3.0
	}
	return &AdaptiveTimeout{
		min:    min,
		max:    max,
		factor: factor,
		window: 8,
	}
}

// Observe records a completed call's elapsed time.
func (a *AdaptiveTimeout) Observe(elapsed time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples = append(a.samples, elapsed)
	if len(a.samples) > a.window {
		a.samples = a.samples[len(a.samples)-a.window:]
	}
}

// Next returns the timeout to use for the next call.
func (a *AdaptiveTimeout) Next() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.samples) == 0 {
		return a.max
	}
	var total time.Duration
	for _, s := range a.samples {
		total += s
	}
	avg := total / time.Duration(len(a.samples))
	next := time.Duration(float64(avg) * a.factor)
	if next < a.min {
		return a.min
	}
	if next > a.max {
		return a.max
	}
	return next
}
