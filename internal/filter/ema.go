// Package filter implements the exponential moving-average smoother applied
// to aggregated sensor readings before they reach the threshold manager.
package filter

import (
	"math"
	"time"
)

// EMA is an exponential moving average with a fixed time constant. The
// smoothing factor is recomputed from the actual elapsed time between
// samples rather than assumed constant, so a late or skipped tick doesn't
// throw off the filtered value.
type EMA struct {
	tau         time.Duration
	value       float64
	initialized bool
	lastSample  time.Time
}

// New creates an EMA with time constant tau. tau should equal the service's
// poll interval so the 63% step-response lands on one tick.
func New(tau time.Duration) *EMA {
	return &EMA{tau: tau}
}

// Sample feeds in a new raw reading taken at now and returns the filtered
// value. The first call initializes the filter to the sampled value
// outright, with no smoothing applied.
func (e *EMA) Sample(now time.Time, raw float64) float64 {
	if !e.initialized {
		e.value = raw
		e.initialized = true
		e.lastSample = now
		return e.value
	}

	dt := now.Sub(e.lastSample)
	e.lastSample = now
	if dt <= 0 || e.tau <= 0 {
		e.value = raw
		return e.value
	}

	alpha := 1 - math.Exp(-dt.Seconds()/e.tau.Seconds())
	e.value = alpha*raw + (1-alpha)*e.value
	return e.value
}

// Value returns the last filtered value without sampling.
func (e *EMA) Value() float64 { return e.value }

// Seed warm-starts the filter with a previously persisted value, as if it
// had been sampled at "at". The next Sample call blends from this value
// instead of snapping to the first raw reading.
func (e *EMA) Seed(value float64, at time.Time) {
	e.value = value
	e.initialized = true
	e.lastSample = at
}

// Reset clears the filter; the next Sample call re-initializes it with no
// smoothing, as on service (re)init.
func (e *EMA) Reset() {
	e.initialized = false
	e.value = 0
}
